package access

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxRole
)

func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	ctx = context.WithValue(ctx, ctxRole, id.Role)
	return ctx
}

// IdentityFrom extracts the caller identity placed in context by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, error) {
	role, ok := ctx.Value(ctxRole).(string)
	if !ok || role == "" {
		return Identity{}, errors.New("role not in context")
	}
	uid, _ := ctx.Value(ctxUserID).(string)
	if role != RoleService && uid == "" {
		return Identity{}, errors.New("user_id not in context")
	}
	return Identity{UserID: uid, Role: role}, nil
}

func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func Role(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxRole).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
