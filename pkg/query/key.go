package query

import (
	"encoding/json"
	"fmt"
)

const keySeparator = "|"

// Key identifies one cached query: a resource plus the exact state tuple the
// query was derived from. Keys for different states never collide.
type Key struct {
	Resource string
	State    any
}

// String returns the canonical encoding "resource|<json state>". Struct fields
// encode in declaration order and map keys sorted, so equal states produce
// equal keys.
func (k Key) String() string {
	state, err := json.Marshal(k.State)
	if err != nil {
		state = []byte(fmt.Sprintf("%#v", k.State))
	}
	return ResourcePrefix(k.Resource) + string(state)
}

// ResourcePrefix is the prefix shared by every key of resource.
func ResourcePrefix(resource string) string {
	return resource + keySeparator
}
