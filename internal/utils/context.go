package utils

const (
	AdminSubjectKey contextKey = "admin_subject"
	AdminRoleKey    contextKey = "admin_role"
)

const RoleAdmin = "admin"
