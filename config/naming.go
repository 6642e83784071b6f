package config

import "github.com/iancoleman/strcase"

// NamingConvention maps between backing database names and the
// exposed names used in API requests and GraphQL types.
type NamingConvention interface {
	ToBackingObject(name string) string

	ToExposedField(name string) string
	ToExposedType(name string) string
}

type defaultNaming struct {
}

func NewDefaultNaming() NamingConvention {
	return &defaultNaming{}
}

func (n *defaultNaming) ToBackingObject(name string) string {
	return strcase.ToSnake(name)
}

func (n *defaultNaming) ToExposedField(name string) string {
	return strcase.ToLowerCamel(name)
}

func (n *defaultNaming) ToExposedType(name string) string {
	return strcase.ToCamel(name)
}
