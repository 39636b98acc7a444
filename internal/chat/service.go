// Package chat implements the membership and messaging rules: who a user
// can talk to, and the per-target message ledger. Callers pass an already
// authenticated Identity; nothing here reads request state.
package chat

import (
	"log"
	"time"

	"github.com/npezzotti/roomchat/internal/database"
	"github.com/teris-io/shortid"
)

// Identity is the caller resolved by the session gate.
type Identity struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type Service struct {
	log    *log.Logger
	users  database.UserStore
	rooms  database.RoomStore
	conns  database.ConnectionStore
	ledger database.Ledger
	now    func() time.Time
	newId  func() (string, error)
}

// NewService wires the service to repo. When ledger is nil messages are
// stored in repo as well.
func NewService(logger *log.Logger, repo database.ChatRepository, ledger database.Ledger) *Service {
	if ledger == nil {
		ledger = repo
	}

	return &Service{
		log:    logger,
		users:  repo,
		rooms:  repo,
		conns:  repo,
		ledger: ledger,
		now:    Now,
		newId:  shortid.Generate,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
