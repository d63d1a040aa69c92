package utils

import "context"

type contextKey string

// SetAdminContext stores the authenticated admin (called by middleware).
func SetAdminContext(ctx context.Context, subject, role string) context.Context {
	ctx = context.WithValue(ctx, AdminSubjectKey, subject)
	ctx = context.WithValue(ctx, AdminRoleKey, role)
	return ctx
}

func GetAdminSubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(AdminSubjectKey).(string)
	return sub, ok && sub != ""
}

func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(AdminRoleKey).(string)
	return role
}

func IsAdmin(ctx context.Context) bool {
	return GetRoleFromContext(ctx) == RoleAdmin
}
