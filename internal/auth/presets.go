package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/safar/go-storefront/internal/models"
)

type presetFile struct {
	Roles map[string]models.PermissionSet `yaml:"roles"`
}

// LoadRolePresets reads the named permission sets admins can be created with.
func LoadRolePresets(path string) (map[string]models.PermissionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role presets: %w", err)
	}
	return ParseRolePresets(data)
}

func ParseRolePresets(data []byte) (map[string]models.PermissionSet, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse role presets: %w", err)
	}
	if _, ok := file.Roles[models.RoleSuperAdmin]; ok {
		return nil, fmt.Errorf("role %q cannot be redefined", models.RoleSuperAdmin)
	}
	if file.Roles == nil {
		file.Roles = map[string]models.PermissionSet{}
	}
	return file.Roles, nil
}

// FullPermissions grants every action in every domain.
func FullPermissions() models.PermissionSet {
	return models.PermissionSet{
		models.DomainProducts:  models.Simple(true),
		models.DomainOrders:    models.Simple(true),
		models.DomainPreorders: models.Simple(true),
		models.DomainAdmins:    models.Simple(true),
	}
}
