package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/campus-live/api-service/internal/config"
	"github.com/weiawesome/campus-live/api-service/internal/domain"
)

// Schema:
//
//	CREATE TABLE messages_by_room (
//	    room_id     text,
//	    created_at  timestamp,
//	    message_id  text,
//	    author_id   text,
//	    author_name text,
//	    content     text,
//	    PRIMARY KEY ((room_id), created_at, message_id)
//	) WITH CLUSTERING ORDER BY (created_at DESC, message_id DESC);

// CassandraMessageRepository implements MessageRepository on Cassandra.
type CassandraMessageRepository struct {
	session *gocql.Session
}

// NewCassandraMessageRepository connects to the cluster.
func NewCassandraMessageRepository(cfg config.CassandraConfig) (*CassandraMessageRepository, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	return &CassandraMessageRepository{session: session}, nil
}

// Create inserts a message.
func (r *CassandraMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `INSERT INTO messages_by_room (
			room_id, created_at, message_id, author_id, author_name, content
		) VALUES (?, ?, ?, ?, ?, ?)`

	err := r.session.Query(query,
		msg.RoomID,
		msg.CreatedAt,
		msg.ID,
		msg.AuthorID,
		msg.AuthorName,
		msg.Text,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// ListRecent returns the newest messages of a room, oldest first.
func (r *CassandraMessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, author_id, author_name, content, created_at
			  FROM messages_by_room
			  WHERE room_id = ?
			  LIMIT ?`

	iter := r.session.Query(query, roomID, limit).WithContext(ctx).Iter()

	var newestFirst []domain.Message
	var msg domain.Message
	for iter.Scan(&msg.ID, &msg.AuthorID, &msg.AuthorName, &msg.Text, &msg.CreatedAt) {
		msg.RoomID = roomID
		newestFirst = append(newestFirst, msg)
		msg = domain.Message{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	messages := make([]domain.Message, len(newestFirst))
	for i := range newestFirst {
		messages[len(newestFirst)-1-i] = newestFirst[i]
	}
	return messages, nil
}

// Close closes the session.
func (r *CassandraMessageRepository) Close() error {
	r.session.Close()
	return nil
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "ALL":
		return gocql.All
	default:
		return gocql.LocalOne
	}
}
