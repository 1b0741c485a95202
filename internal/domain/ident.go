package domain

import "github.com/google/uuid"

// ResolveID normalizes the heterogeneous reference shapes seen on the wire
// into a canonical id: a bare string, a uuid, a document carrying "_id" or
// "id", or a wrapped object id ({"$oid": ...}). Unrecognized shapes resolve
// to (zero, false) rather than an error; callers skip enrichment for
// unresolvable references instead of failing the request.
func ResolveID(ref any) (uuid.UUID, bool) {
	switch v := ref.(type) {
	case nil:
		return uuid.Nil, false
	case uuid.UUID:
		if v == uuid.Nil {
			return uuid.Nil, false
		}
		return v, true
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, false
		}
		return ResolveID(*v)
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	case map[string]any:
		for _, key := range []string{"$oid", "_id", "id"} {
			if inner, ok := v[key]; ok {
				return ResolveID(inner)
			}
		}
		return uuid.Nil, false
	default:
		return uuid.Nil, false
	}
}
