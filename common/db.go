package common

import (
	"bytes"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"text/template"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"
)

// DB journals rounds, tickets and payouts of a lottery. All methods are no-ops on a nil *DB
// so the journal is optional.
type DB struct {
	dbh *sql.DB

	// prepared statements
	upsertRound       *sql.Stmt
	updateRandomValue *sql.Stmt
	insertTicket      *sql.Stmt
	updateTicketOwner *sql.Stmt
	insertPayout      *sql.Stmt
}

// DBRound is the journaled state of a round
type DBRound struct {
	Index          uint64
	Status         string
	CloseTimestamp int64
	TotalSupply    *big.Int
	RandomValue    *big.Int
}

// DBTicket is a journaled ticket purchase
type DBTicket struct {
	Round      uint64
	ID         uint64
	Units      uint64
	LastNumber uint64
	Owner      ethcommon.Address
	Seller     ethcommon.Address
	Cost       *big.Int
	ReceivedAt int64
}

// DBPayout is a journaled settlement transfer
type DBPayout struct {
	Round     uint64
	Kind      string
	RuleID    uint64
	DrawIndex uint64
	TicketID  uint64
	Recipient ethcommon.Address
	Amount    *big.Int
	CreatedAt int64
}

// DBPayoutFilter narrows SelectPayouts. Nil fields match everything
type DBPayoutFilter struct {
	Round     *uint64
	Recipient *ethcommon.Address
	Kind      string
}

var schema = `
	CREATE TABLE IF NOT EXISTS rounds (
		roundIndex INTEGER PRIMARY KEY,
		status STRING,
		closeTimestamp INTEGER,
		totalSupply STRING DEFAULT '0',
		randomValue STRING DEFAULT '0',
		updatedAt STRING DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tickets (
		roundIndex INTEGER NOT NULL,
		ticketID INTEGER NOT NULL,
		units INTEGER,
		lastNumber INTEGER,
		owner STRING,
		seller STRING,
		cost STRING,
		receivedAt INTEGER,
		PRIMARY KEY(roundIndex, ticketID)
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner);

	CREATE TABLE IF NOT EXISTS payouts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		roundIndex INTEGER NOT NULL,
		kind STRING,
		ruleID INTEGER,
		drawIndex INTEGER,
		ticketID INTEGER,
		recipient STRING,
		amount STRING,
		createdAt INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_payouts_round ON payouts(roundIndex);
	CREATE INDEX IF NOT EXISTS idx_payouts_recipient ON payouts(recipient);
`

func InitDB(dbPath string) (*DB, error) {
	d := DB{}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		glog.Error("Unable to open DB ", dbPath, err)
		return nil, err
	}
	d.dbh = db
	schemaBuf := new(bytes.Buffer)
	tmpl := template.Must(template.New("schema").Parse(schema))
	tmpl.Execute(schemaBuf, nil)
	_, err = db.Exec(schemaBuf.String())
	if err != nil {
		glog.Error("Error initializing schema ", err)
		d.Close()
		return nil, err
	}

	prepare := func(name, query string) (*sql.Stmt, error) {
		stmt, err := db.Prepare(query)
		if err != nil {
			glog.Errorf("Unable to prepare %v stmt err=%q", name, err)
			d.Close()
			return nil, err
		}
		return stmt, nil
	}

	if d.upsertRound, err = prepare("upsertRound", `
		INSERT INTO rounds(roundIndex, status, closeTimestamp, totalSupply) VALUES(?, ?, ?, ?)
		ON CONFLICT(roundIndex) DO UPDATE SET
			status = excluded.status,
			closeTimestamp = excluded.closeTimestamp,
			totalSupply = excluded.totalSupply,
			updatedAt = datetime()
	`); err != nil {
		return nil, err
	}
	if d.updateRandomValue, err = prepare("updateRandomValue",
		"UPDATE rounds SET randomValue = ?, updatedAt = datetime() WHERE roundIndex = ?"); err != nil {
		return nil, err
	}
	if d.insertTicket, err = prepare("insertTicket", `
		INSERT INTO tickets(roundIndex, ticketID, units, lastNumber, owner, seller, cost, receivedAt)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`); err != nil {
		return nil, err
	}
	if d.updateTicketOwner, err = prepare("updateTicketOwner",
		"UPDATE tickets SET owner = ? WHERE roundIndex = ? AND ticketID = ?"); err != nil {
		return nil, err
	}
	if d.insertPayout, err = prepare("insertPayout", `
		INSERT INTO payouts(roundIndex, kind, ruleID, drawIndex, ticketID, recipient, amount, createdAt)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`); err != nil {
		return nil, err
	}

	glog.V(DEBUG).Info("Initialized DB node")
	return &d, nil
}

func (db *DB) Close() {
	glog.V(DEBUG).Info("Closing DB")
	for _, stmt := range []*sql.Stmt{db.upsertRound, db.updateRandomValue, db.insertTicket, db.updateTicketOwner, db.insertPayout} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if db.dbh != nil {
		db.dbh.Close()
	}
}

// UpdateRound records the status, close time and pool of a round, creating it if needed
func (db *DB) UpdateRound(r *DBRound) error {
	if db == nil {
		return nil
	}
	glog.V(DEBUG).Infof("db: Updating round=%d status=%v", r.Index, r.Status)
	_, err := db.upsertRound.Exec(r.Index, r.Status, r.CloseTimestamp, bigString(r.TotalSupply))
	if err != nil {
		glog.Errorf("db: Unable to update round=%d err=%q", r.Index, err)
		return err
	}
	return nil
}

// SetRandomValue records the random value fulfilled for a round
func (db *DB) SetRandomValue(round uint64, value *big.Int) error {
	if db == nil {
		return nil
	}
	_, err := db.updateRandomValue.Exec(bigString(value), round)
	if err != nil {
		glog.Errorf("db: Unable to set random value round=%d err=%q", round, err)
		return err
	}
	return nil
}

// InsertTicket journals a ticket purchase
func (db *DB) InsertTicket(t *DBTicket) error {
	if db == nil {
		return nil
	}
	_, err := db.insertTicket.Exec(t.Round, t.ID, t.Units, t.LastNumber, t.Owner.Hex(), t.Seller.Hex(), bigString(t.Cost), t.ReceivedAt)
	if err != nil {
		glog.Errorf("db: Unable to insert ticket round=%d ticketID=%d err=%q", t.Round, t.ID, err)
		return err
	}
	return nil
}

// UpdateTicketOwner records a ticket transfer
func (db *DB) UpdateTicketOwner(round, ticketID uint64, owner ethcommon.Address) error {
	if db == nil {
		return nil
	}
	_, err := db.updateTicketOwner.Exec(owner.Hex(), round, ticketID)
	if err != nil {
		glog.Errorf("db: Unable to update ticket owner round=%d ticketID=%d err=%q", round, ticketID, err)
		return err
	}
	return nil
}

// InsertPayout journals a settlement transfer
func (db *DB) InsertPayout(p *DBPayout) error {
	if db == nil {
		return nil
	}
	_, err := db.insertPayout.Exec(p.Round, p.Kind, p.RuleID, p.DrawIndex, p.TicketID, p.Recipient.Hex(), bigString(p.Amount), p.CreatedAt)
	if err != nil {
		glog.Errorf("db: Unable to insert payout round=%d kind=%v err=%q", p.Round, p.Kind, err)
		return err
	}
	return nil
}

// FindRound returns the journaled round with the given index, nil if there is none
func (db *DB) FindRound(index uint64) (*DBRound, error) {
	if db == nil {
		return nil, nil
	}
	rounds, err := db.selectRounds("WHERE roundIndex = ?", index)
	if err != nil || len(rounds) == 0 {
		return nil, err
	}
	return rounds[0], nil
}

// SelectRounds returns every journaled round ordered by index
func (db *DB) SelectRounds() ([]*DBRound, error) {
	if db == nil {
		return nil, nil
	}
	return db.selectRounds("")
}

func (db *DB) selectRounds(where string, args ...interface{}) ([]*DBRound, error) {
	rows, err := db.dbh.Query("SELECT roundIndex, status, closeTimestamp, totalSupply, randomValue FROM rounds "+where+" ORDER BY roundIndex", args...)
	if err != nil {
		glog.Error("db: Unable to select rounds ", err)
		return nil, err
	}
	defer rows.Close()

	var rounds []*DBRound
	for rows.Next() {
		var (
			r                        DBRound
			totalSupply, randomValue string
		)
		if err := rows.Scan(&r.Index, &r.Status, &r.CloseTimestamp, &totalSupply, &randomValue); err != nil {
			glog.Error("db: Unable to fetch round ", err)
			return nil, err
		}
		if r.TotalSupply, err = parseBig(totalSupply); err != nil {
			return nil, err
		}
		if r.RandomValue, err = parseBig(randomValue); err != nil {
			return nil, err
		}
		rounds = append(rounds, &r)
	}
	return rounds, rows.Err()
}

// SelectTickets returns the journaled tickets of a round ordered by id
func (db *DB) SelectTickets(round uint64) ([]*DBTicket, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.dbh.Query(`
		SELECT roundIndex, ticketID, units, lastNumber, owner, seller, cost, receivedAt
		FROM tickets WHERE roundIndex = ? ORDER BY ticketID`, round)
	if err != nil {
		glog.Error("db: Unable to select tickets ", err)
		return nil, err
	}
	defer rows.Close()

	var tickets []*DBTicket
	for rows.Next() {
		var (
			t                   DBTicket
			owner, seller, cost string
		)
		if err := rows.Scan(&t.Round, &t.ID, &t.Units, &t.LastNumber, &owner, &seller, &cost, &t.ReceivedAt); err != nil {
			glog.Error("db: Unable to fetch ticket ", err)
			return nil, err
		}
		t.Owner = ethcommon.HexToAddress(owner)
		t.Seller = ethcommon.HexToAddress(seller)
		if t.Cost, err = parseBig(cost); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

// SelectPayouts returns the journaled payouts matching filter in the order they were made
func (db *DB) SelectPayouts(filter *DBPayoutFilter) ([]*DBPayout, error) {
	if db == nil {
		return nil, nil
	}
	query, args := buildSelectPayoutsQuery(filter)
	rows, err := db.dbh.Query(query, args...)
	if err != nil {
		glog.Error("db: Unable to select payouts ", err)
		return nil, err
	}
	defer rows.Close()

	var payouts []*DBPayout
	for rows.Next() {
		var (
			p                 DBPayout
			recipient, amount string
		)
		if err := rows.Scan(&p.Round, &p.Kind, &p.RuleID, &p.DrawIndex, &p.TicketID, &recipient, &amount, &p.CreatedAt); err != nil {
			glog.Error("db: Unable to fetch payout ", err)
			return nil, err
		}
		p.Recipient = ethcommon.HexToAddress(recipient)
		if p.Amount, err = parseBig(amount); err != nil {
			return nil, err
		}
		payouts = append(payouts, &p)
	}
	return payouts, rows.Err()
}

func buildSelectPayoutsQuery(filter *DBPayoutFilter) (string, []interface{}) {
	query := "SELECT roundIndex, kind, ruleID, drawIndex, ticketID, recipient, amount, createdAt FROM payouts"
	var (
		fil  []string
		args []interface{}
	)
	if filter != nil {
		if filter.Round != nil {
			fil = append(fil, "roundIndex = ?")
			args = append(args, *filter.Round)
		}
		if filter.Recipient != nil {
			fil = append(fil, "recipient = ?")
			args = append(args, filter.Recipient.Hex())
		}
		if filter.Kind != "" {
			fil = append(fil, "kind = ?")
			args = append(args, filter.Kind)
		}
	}
	if len(fil) > 0 {
		query += " WHERE " + strings.Join(fil, " AND ")
	}
	return query + " ORDER BY id", args
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	v, err := ParseBigInt(s)
	if err != nil {
		return nil, fmt.Errorf("db: invalid stored integer %q", s)
	}
	return v, nil
}
