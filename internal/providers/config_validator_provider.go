package providers

import (
	"github.com/gookit/validate"

	"bousai/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate checks every tagged config section. gookit/validate does not
// descend into nested structs on its own, so sections are validated
// one by one.
func (v *CnfValidator) Validate() error {
	sections := []interface{}{
		&v.conf.WebServer,
		&v.conf.Remote,
		&v.conf.Storage,
		&v.conf.Logger,
	}
	for _, section := range sections {
		res := validate.Struct(section)
		if !res.Validate() {
			return res.Errors
		}
	}
	return nil
}
