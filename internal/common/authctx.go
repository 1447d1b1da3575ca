package common

import "context"

type ctxKey string

const (
	memberIDKey ctxKey = "auth/member-id"
	subjectKey  ctxKey = "auth/subject"
	rolesKey    ctxKey = "auth/roles"
)

// WithMemberID stores the authenticated member identifier on the provided context.
func WithMemberID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, memberIDKey, id)
}

// MemberID extracts the authenticated member identifier from the context if present.
func MemberID(ctx context.Context) (string, bool) {
	v := ctx.Value(memberIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithSubject stores the identity provider subject claim on the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject extracts the identity provider subject from the context if present.
func Subject(ctx context.Context) (string, bool) {
	v := ctx.Value(subjectKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// WithRoles stores the member's resolved roles on the context.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// Roles extracts the member's roles from the context.
func Roles(ctx context.Context) []string {
	if v, ok := ctx.Value(rolesKey).([]string); ok {
		return v
	}
	return nil
}
