package postgres

import (
	"database/sql"
)

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func searchPattern(s string) string {
	return "%" + s + "%"
}
