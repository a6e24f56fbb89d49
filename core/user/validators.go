package user

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/sgescola/sge/core/auth"
)

var (
	allPermsTag  = "allperms"
	allPermsText = "invalid permissions"

	knownPerms = func() map[string]struct{} {
		known := make(map[string]struct{})
		for _, p := range auth.Catalog() {
			known[p] = struct{}{}
		}
		known[auth.NoAccess] = struct{}{}
		return known
	}()
)

// allPermsValidation checks that every entry of a permission list belongs
// to the catalog (or is the NO_ACCESS sentinel).
func allPermsValidation(fl validator.FieldLevel) bool {
	fld := fl.Field()
	if fld.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < fld.Len(); i++ {
		if _, ok := knownPerms[fld.Index(i).String()]; !ok {
			return false
		}
	}
	return true
}
