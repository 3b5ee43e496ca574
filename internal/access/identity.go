package access

// Role names. Keep these stable; they are part of the auth contract.
//
// The service role is the explicitly-granted capability that bypasses
// per-user row visibility. It is never implied; a caller holds it only
// when its token says so.
const (
	RoleUser    = "user"
	RoleService = "service"
)

// Identity is the caller identity passed explicitly into every read path.
// Row visibility rule: a record is visible when the caller owns it
// (UserID match) or the caller holds the service role.
type Identity struct {
	UserID string
	Role   string
}

// Service reports whether the identity carries the privileged service credential.
func (id Identity) Service() bool { return id.Role == RoleService }

// CanSee reports whether the identity may observe a record owned by ownerID.
// Ownerless records (ownerID == "") are visible to the service role only.
func (id Identity) CanSee(ownerID string) bool {
	if id.Service() {
		return true
	}
	return ownerID != "" && id.UserID == ownerID
}

// ServiceIdentity is a convenience for internal callers (webhook dispatch,
// reporting jobs) that act with service-level privilege.
func ServiceIdentity() Identity { return Identity{Role: RoleService} }
