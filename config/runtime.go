package config

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"
)

var (
	runtimeValidator *validator.Validate
	trans            ut.Translator
)

func init() {
	runtimeValidator = validator.New()

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(runtimeValidator, trans)

	_ = runtimeValidator.RegisterTranslation("required", trans, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is a required field", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required", fe.Field())
		return t
	})
}

// RuntimeConfig is the declarative description of the exposed entities,
// loaded once at startup and used to build the metadata snapshot.
type RuntimeConfig struct {
	Backend          string                  `mapstructure:"backend" validate:"required,oneof=postgresql mysql sqlite"`
	ConnectionString string                  `mapstructure:"connection-string" validate:"required"`
	Entities         map[string]EntityConfig `mapstructure:"entities" validate:"required,dive"`
}

type EntityConfig struct {
	Source        SourceConfig                  `mapstructure:"source"`
	Mappings      map[string]string             `mapstructure:"mappings"`
	Relationships map[string]RelationshipConfig `mapstructure:"relationships" validate:"dive"`
	Permissions   []PermissionConfig            `mapstructure:"permissions" validate:"dive"`
}

// SourceConfig identifies the backing database object. Object may be left
// empty, in which case it is derived from the entity name through the
// naming convention. KeyFields names the columns that uniquely identify a
// row when the catalog exposes no primary key, as with views; without them
// such an entity cannot be paged.
type SourceConfig struct {
	Schema    string   `mapstructure:"schema"`
	Object    string   `mapstructure:"object"`
	Kind      string   `mapstructure:"kind" validate:"omitempty,oneof=table view stored-procedure"`
	KeyFields []string `mapstructure:"key-fields"`
}

type RelationshipConfig struct {
	Target              string   `mapstructure:"target" validate:"required"`
	Cardinality         string   `mapstructure:"cardinality" validate:"required,oneof=one many"`
	SourceFields        []string `mapstructure:"source-fields"`
	TargetFields        []string `mapstructure:"target-fields"`
	LinkingObject       string   `mapstructure:"linking-object"`
	LinkingSourceFields []string `mapstructure:"linking-source-fields"`
	LinkingTargetFields []string `mapstructure:"linking-target-fields"`
}

type PermissionConfig struct {
	Role    string         `mapstructure:"role" validate:"required"`
	Actions []ActionConfig `mapstructure:"actions" validate:"required,dive"`
}

type ActionConfig struct {
	Action  string   `mapstructure:"action" validate:"required,oneof=create read update delete *"`
	Columns []string `mapstructure:"columns"`
	Policy  string   `mapstructure:"policy"`
}

// LoadRuntimeConfig reads and validates the entities file (YAML or JSON).
func LoadRuntimeConfig(path string) (*RuntimeConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg RuntimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := runtimeValidator.Struct(&cfg); err != nil {
		return nil, translateValidatorError(err)
	}

	return &cfg, nil
}

// translateValidatorError converts go-playground validator errors into a
// single user friendly error message.
func translateValidatorError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := validationErrors.Translate(trans)
		vals := make([]string, 0, len(errs))
		for _, value := range errs {
			vals = append(vals, value)
		}
		return errors.New(strings.Join(vals, " "))
	}
	return err
}
