// Package query renders MongoDB operations as shell style strings for the
// detail log (logAction.DB_REQUEST).
package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

type QueryType string

const (
	InsertOne      QueryType = "insertOne"
	FindOne        QueryType = "findOne"
	Find           QueryType = "find"
	CountDocuments QueryType = "countDocuments"
	UpdateOne      QueryType = "updateOne"
	DeleteMany     QueryType = "deleteMany"
	CreateIndex    QueryType = "createIndex"
)

// MaxLength bounds rendered queries so large documents do not flood the log.
const MaxLength = 2048

// Raw renders db.<collection>.<op>(<args...>).
// Example: Raw("auth_events", Find, bson.M{"sub": "abc"}) -> db.auth_events.find({'sub':'abc'})
func Raw(collection string, op QueryType, args ...any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, render(arg))
	}
	return Truncate(fmt.Sprintf("db.%s.%s(%s)", collection, op, strings.Join(parts, ", ")), MaxLength)
}

func render(v any) string {
	if v == nil {
		return "{}"
	}
	// relaxed extended JSON keeps dates and ObjectIDs readable
	if b, err := bson.MarshalExtJSON(v, false, false); err == nil {
		return shellFormat(string(b))
	}
	if b, err := json.Marshal(v); err == nil {
		return shellFormat(string(b))
	}
	return "..."
}

// shellFormat switches JSON double quotes to the single quotes used in the mongo shell.
func shellFormat(jsonStr string) string {
	result := strings.ReplaceAll(jsonStr, `"`, `'`)
	result = strings.ReplaceAll(result, `\'`, `'`)
	return strings.ReplaceAll(result, `\\`, `\`)
}

func Truncate(query string, maxLength int) string {
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength-3] + "..."
}
