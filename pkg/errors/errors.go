package errors

import (
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE
const (
	pgUniqueViolation = "23505"
)

// IsUniqueViolation 判断 err 是否为唯一约束冲突。
// constraint 非空时仅匹配该约束名（仅 PostgreSQL 能给出约束名，其余驱动按任意唯一冲突处理）。
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraint == "" || pgErr.ConstraintName == constraint
	}

	// gorm.ErrDuplicatedKey 不带约束名，按任意唯一冲突处理
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// sqlite 驱动返回原始错误
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound 判断 err 是否为记录不存在
func IsNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}
