package health

import (
	"context"
	"fmt"
	"time"

	"github.com/peluware/freddy/pkg/crud"
)

// DefaultTimeout bounds a single dependency check.
const DefaultTimeout = 5 * time.Second

// Pinger is a dependency that can report whether it is reachable, such as
// the Redis query store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker checks a Pinger within a timeout
type PingChecker struct {
	name    string
	target  Pinger
	timeout time.Duration
}

// NewPingChecker creates a checker for target. A zero timeout uses
// DefaultTimeout.
func NewPingChecker(name string, target Pinger, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PingChecker{name: name, target: target, timeout: timeout}
}

// Check pings the target
func (c *PingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.target.Ping(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	return result
}

// Name returns the name of the health check
func (c *PingChecker) Name() string {
	return c.name
}

// ResourceChecker checks a remote resource by requesting its first page with
// a single row. A response slower than the slow threshold is degraded.
type ResourceChecker[T any] struct {
	name    string
	page    crud.Pageable[T]
	timeout time.Duration
	slow    time.Duration
}

// NewResourceChecker creates a checker for page. A zero timeout uses
// DefaultTimeout; a zero slow threshold disables the degraded state.
func NewResourceChecker[T any](name string, page crud.Pageable[T], timeout, slow time.Duration) *ResourceChecker[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ResourceChecker[T]{name: name, page: page, timeout: timeout, slow: slow}
}

// Check requests one row of the resource
func (c *ResourceChecker[T]) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, desc, ok := c.page.Page(checkCtx, crud.PageQuery{Page: crud.Int(0), Size: crud.Int(1)}).Get()
	duration := time.Since(start)
	result := CheckResult{
		Name:      c.name,
		Timestamp: time.Now(),
		Duration:  duration,
	}
	if !ok {
		result.Status = StatusUnhealthy
		result.Error = desc.Error()
		return result
	}

	result.Status = StatusHealthy
	result.Message = fmt.Sprintf("Total de registros: %d", page.Page.TotalElements)
	result.Metadata = map[string]interface{}{"total_elements": page.Page.TotalElements}
	if c.slow > 0 && duration > c.slow {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("slow response (%s)", duration.Round(time.Millisecond))
	}
	return result
}

// Name returns the name of the health check
func (c *ResourceChecker[T]) Name() string {
	return c.name
}

// LivenessChecker always reports healthy
type LivenessChecker struct {
	name string
}

// NewLivenessChecker creates a new liveness checker
func NewLivenessChecker(name string) *LivenessChecker {
	return &LivenessChecker{name: name}
}

// Check always returns healthy status
func (c *LivenessChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "Service is alive",
		Timestamp: time.Now(),
	}
}

// Name returns the name of the health check
func (c *LivenessChecker) Name() string {
	return c.name
}

// CustomChecker allows creating a health checker from a custom function
type CustomChecker struct {
	name      string
	checkFunc func(ctx context.Context) (Status, string, error)
}

// NewCustomChecker creates a new custom health checker
// The checkFunc should return (status, message, error)
func NewCustomChecker(name string, checkFunc func(ctx context.Context) (Status, string, error)) *CustomChecker {
	return &CustomChecker{
		name:      name,
		checkFunc: checkFunc,
	}
}

// Check executes the custom check function
func (c *CustomChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	status, message, err := c.checkFunc(ctx)

	result := CheckResult{
		Name:      c.name,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}

	if err != nil {
		result.Error = err.Error()
	}

	return result
}

// Name returns the name of the health check
func (c *CustomChecker) Name() string {
	return c.name
}
