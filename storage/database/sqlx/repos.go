package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
)

const pgUniqueViolation = "23505"

// violatesConstraint reports whether err is a psql unique violation on the
// named constraint.
func violatesConstraint(err error, constraint string) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == pgUniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

// inTx runs fn inside the given executor if one was provided (the caller
// already owns a transaction), otherwise inside a new transaction.
func inTx(ctx context.Context, db core.DB, svcExec []core.DBExecutor, fn func(exec core.DBExecutor) error) error {
	if len(svcExec) > 0 {
		return fn(svcExec[0])
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querySet accumulates a dynamic UPDATE ... SET clause with positional args.
type querySet struct {
	sets []string
	args []interface{}
}

func (qs *querySet) add(col string, val interface{}) {
	qs.args = append(qs.args, val)
	qs.sets = append(qs.sets, fmt.Sprintf("%s = $%d", col, len(qs.args)))
}

func (qs *querySet) arg(val interface{}) string {
	qs.args = append(qs.args, val)
	return fmt.Sprintf("$%d", len(qs.args))
}

// orderBy renders an ORDER BY clause body, falling back to def when no
// ordering was requested. Callers must whitelist field names beforehand.
func orderBy(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		return def
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
