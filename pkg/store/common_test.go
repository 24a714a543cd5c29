package store

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/alexsears/tentOS/pkg/db"
)

func GetStoreWithMemorySqliteDialector() *Store {
	dbInstance := db.GetInstance(db.UseMemorySqliteDialector()) // ensure migrations
	return (&Store{Db: *dbInstance}).WithDefaultServices()
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
