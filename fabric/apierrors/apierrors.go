// Package apierrors defines the abstract error taxonomy shared by every
// fabricd component. It replaces hive's AWS error-code catalog
// (hive/awserrors) with the kind-based taxonomy the VPC resource manager
// needs: none of fabricd's operations speak the EC2 wire protocol, so there
// is no AWS error code to map to.
package apierrors

import "fmt"

// Kind is one of the abstract error categories a fabricd operation can
// return. Callers should switch on Kind, not on the formatted message.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindAlreadyExists       Kind = "ObjectAlreadyExists"
	KindConflict            Kind = "Conflict"
	KindInvalidRequest      Kind = "InvalidRequest"
	KindOverlappingIPRange  Kind = "OverlappingIpRange"
	KindExhaustedFreeIPs    Kind = "ExhaustedFreeIps"
	KindInsufficientCap     Kind = "InsufficientCapacity"
	KindCollectionNotFound  Kind = "CollectionNotFound"
	KindUnauthorized        Kind = "Unauthorized"
	KindServiceUnavailable  Kind = "ServiceUnavailable"
	KindInternal            Kind = "Internal"
)

// Error carries a Kind plus whatever detail is useful to the caller. It is
// the fabricd analogue of hive/awserrors.AWSError{Code, Detail}.
type Error struct {
	Kind         Kind
	Message      string
	ResourceType string // e.g. "vpc", "subnet" — used by NotFound/AlreadyExists/Conflict
	Name         string // the colliding/missing name or id, if any
	Family       string // "v4" or "v6", used by OverlappingIpRange
	Err          error  // wrapped lower-level cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		if e.ResourceType != "" {
			return fmt.Sprintf("%s not found: %s", e.ResourceType, e.Name)
		}
	case KindAlreadyExists:
		return fmt.Sprintf("%s %q already exists", e.ResourceType, e.Name)
	case KindConflict:
		return fmt.Sprintf("%s %q conflicts with an existing resource", e.ResourceType, e.Name)
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, NotFound("x","y")) work by Kind equality,
// ignoring Message/Name so callers can test category without constructing
// the exact detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NotFound(resourceType, name string) *Error {
	return &Error{Kind: KindNotFound, ResourceType: resourceType, Name: name}
}

func AlreadyExists(resourceType, name string) *Error {
	return &Error{Kind: KindAlreadyExists, ResourceType: resourceType, Name: name}
}

func Conflict(resourceType, name string) *Error {
	return &Error{Kind: KindConflict, ResourceType: resourceType, Name: name}
}

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func OverlappingIPRange(family string) *Error {
	return &Error{Kind: KindOverlappingIPRange, Family: family, Message: fmt.Sprintf("overlapping %s range", family)}
}

func ExhaustedFreeIPs(subnetID string) *Error {
	return &Error{Kind: KindExhaustedFreeIPs, Name: subnetID, Message: fmt.Sprintf("subnet %s has no free addresses", subnetID)}
}

func InsufficientCapacity(reason string) *Error {
	return &Error{Kind: KindInsufficientCap, Message: reason}
}

// CollectionNotFound is internal: store code returns it when a parent row
// vanished mid-insert. Callers at the fabric/vpcstore boundary translate it
// to NotFound(parentType, parentID) before it reaches anyone outside the
// package, per spec.md §7.
func CollectionNotFound(parentType, parentID string) *Error {
	return &Error{Kind: KindCollectionNotFound, ResourceType: parentType, Name: parentID}
}

func Unauthorized(action, resource string) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf("not authorized to %s %s", action, resource)}
}

func ServiceUnavailable(reason string) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: reason}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err, Message: "internal error"}
}

// AsCollectionNotFound translates an internal CollectionNotFound into the
// NotFound(parentType) the spec says callers should observe.
func AsCollectionNotFound(err error) (*Error, bool) {
	e, ok := err.(*Error)
	if !ok || e.Kind != KindCollectionNotFound {
		return nil, false
	}
	return NotFound(e.ResourceType, e.Name), true
}
