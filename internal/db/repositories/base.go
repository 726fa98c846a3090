package repositories

import (
	"database/sql"

	"greenroom/internal/db"
)

type Repositories struct {
	Users         *UserRepo
	Jobs          *JobRepo
	ToolRuns      *ToolRunRepo
	SearchResults *SearchResultRepo
	Videos        *VideoRepo
	Ideas         *IdeaRepo
	db            db.Database // Store reference to database for transactions
}

func New(database db.Database) *Repositories {
	conn := database.Conn()

	return &Repositories{
		Users:         NewUserRepo(conn),
		Jobs:          NewJobRepo(conn),
		ToolRuns:      NewToolRunRepo(conn),
		SearchResults: NewSearchResultRepo(conn),
		Videos:        NewVideoRepo(conn),
		Ideas:         NewIdeaRepo(conn),
		db:            database,
	}
}

// BeginTx starts a database transaction
func (r *Repositories) BeginTx() (*sql.Tx, error) {
	return r.db.Conn().Begin()
}
