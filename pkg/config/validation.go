package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Uses go-playground/validator for declarative validation via struct tags,
// with additional custom validation for rules that cannot be expressed in
// tags. Log level normalization happens in ApplyDefaults, not here;
// validation accepts both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Store.Type == "badger" {
		path, _ := cfg.Store.Badger["path"].(string)
		inMemory, _ := cfg.Store.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("store.badger: path is required unless in_memory is set")
		}
	}

	if cfg.Backup.Enabled {
		switch cfg.Backup.Type {
		case "filesystem":
			if path, _ := cfg.Backup.Filesystem["path"].(string); path == "" {
				return fmt.Errorf("backup.filesystem: path is required")
			}
		case "s3":
			if bucket, _ := cfg.Backup.S3["bucket"].(string); bucket == "" {
				return fmt.Errorf("backup.s3: bucket is required")
			}
			if region, _ := cfg.Backup.S3["region"].(string); region == "" {
				return fmt.Errorf("backup.s3: region is required")
			}
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
