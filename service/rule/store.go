package rule

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _busy_timeout=5000: wait up to 5s when DB is locked (default=0, fails immediately)
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS forward_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			appPackageName TEXT NOT NULL,
			appName TEXT NOT NULL DEFAULT '',
			filterKeywords TEXT NOT NULL DEFAULT '',
			serverUrl TEXT NOT NULL DEFAULT '',
			brokerHost TEXT NOT NULL DEFAULT '',
			port TEXT NOT NULL DEFAULT '1883',
			clientId TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			messageTemplate TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const ruleColumns = `id, name, type, appPackageName, appName, filterKeywords,
	serverUrl, brokerHost, port, clientId, username, password, topic, messageTemplate`

// List returns all forwarding rules. The pipeline takes this as a read-only
// snapshot per event.
func (s *Store) List() ([]ForwardRule, error) {
	rows, err := s.db.Query(`SELECT ` + ruleColumns + ` FROM forward_rules`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []ForwardRule
	for rows.Next() {
		var r ForwardRule
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Type, &r.AppPackageName, &r.AppName, &r.FilterKeywords,
			&r.ServerURL, &r.BrokerHost, &r.Port, &r.ClientID, &r.Username, &r.Password,
			&r.Topic, &r.MessageTemplate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

func (s *Store) GetByID(id string) (*ForwardRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM forward_rules WHERE id = ?`, id)

	var r ForwardRule
	err := row.Scan(
		&r.ID, &r.Name, &r.Type, &r.AppPackageName, &r.AppName, &r.FilterKeywords,
		&r.ServerURL, &r.BrokerHost, &r.Port, &r.ClientID, &r.Username, &r.Password,
		&r.Topic, &r.MessageTemplate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &r, nil
}

// Save inserts the rule, or replaces the stored record when the id already
// exists. A blank id gets a generated one; the updated rule is returned.
func (s *Store) Save(r ForwardRule) (ForwardRule, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Port == "" {
		r.Port = "1883"
	}

	query := `
		INSERT INTO forward_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			appPackageName = excluded.appPackageName,
			appName = excluded.appName,
			filterKeywords = excluded.filterKeywords,
			serverUrl = excluded.serverUrl,
			brokerHost = excluded.brokerHost,
			port = excluded.port,
			clientId = excluded.clientId,
			username = excluded.username,
			password = excluded.password,
			topic = excluded.topic,
			messageTemplate = excluded.messageTemplate
	`
	_, err := s.db.Exec(query,
		r.ID, r.Name, r.Type, r.AppPackageName, r.AppName, r.FilterKeywords,
		r.ServerURL, r.BrokerHost, r.Port, r.ClientID, r.Username, r.Password,
		r.Topic, r.MessageTemplate,
	)
	if err != nil {
		return ForwardRule{}, fmt.Errorf("failed to save rule: %w", err)
	}

	return r, nil
}

func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM forward_rules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}
