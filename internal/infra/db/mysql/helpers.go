package mysql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

// storageErr tags a transport failure with the domain sentinel.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorageUnavailable, err))
}

// jsonOrNull marshals a nullable payload to a JSON column value.
func jsonOrNull(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// unmarshalNullable decodes a nullable JSON column into out, leaving out
// untouched for NULL.
func unmarshalNullable(col sql.NullString, out any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), out)
}
