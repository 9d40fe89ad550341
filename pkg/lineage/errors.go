package lineage

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/format"
)

// ErrNotSimpleTable is returned, wrapped with the offending fragment, when
// a plain table name is required, such as the target of UPDATE or MERGE or
// the source of PIVOT.
var ErrNotSimpleTable = errors.New("Name can be got only from simple table") //nolint:staticcheck // ST1005: callers match this exact message

// notSimpleTable wraps ErrNotSimpleTable with the offending table factor.
func notSimpleTable(ref core.TableRef) error {
	return fmt.Errorf("%w, got %s", ErrNotSimpleTable, format.Compact(ref))
}

// UnsupportedError reports a construct the visitor does not model. SQL is
// the construct rendered on one line.
type UnsupportedError struct {
	SQL string
}

func (e *UnsupportedError) Error() string {
	return "TableFactor other than table or subquery not implemented: " + e.SQL
}
