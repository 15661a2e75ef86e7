package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"grade:view-own",
	},
	"instructor": {
		"grade:view-own",
		"grade:view-all",
		"grade:recompute",
		"course:manage",
		"events:view",
	},
	"admin": {
		"*", // everything
	},
}
