package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"client": {
		"exam_set:list",
		"session:run",
		"session:view",
		"result:view-own",
		"asset:view",
	},
	"admin": {
		"*", // everything, including catalog:write and asset:write
	},
}
