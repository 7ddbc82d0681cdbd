package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iudanet/catalogsync/internal/storage"
)

// Instance is a registered replica
type Instance struct {
	DateCreated time.Time
	Name        string
	PubID       uuid.UUID
	ID          int64
}

// RegisterInstance creates or renames the instance row for pubID.
// An empty name keeps the stored one. Used when pairing two instances
func (s *Storage) RegisterInstance(ctx context.Context, pubID uuid.UUID, name string) error {
	query := `
		INSERT INTO instance (pub_id, name, date_created)
		VALUES (?, ?, ?)
		ON CONFLICT (pub_id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN instance.name ELSE excluded.name END
	`

	if _, err := s.db.ExecContext(ctx, query, pubID[:], name, time.Now().Unix()); err != nil {
		return fmt.Errorf("%w: failed to register instance: %w", storage.ErrStorage, err)
	}

	return nil
}

// GetInstance retrieves an instance by its pub_id
// Returns ErrInstanceNotFound if the instance is not registered
func (s *Storage) GetInstance(ctx context.Context, pubID uuid.UUID) (*Instance, error) {
	query := `SELECT id, pub_id, name, date_created FROM instance WHERE pub_id = ?`

	var (
		inst      Instance
		rawPubID  []byte
		createdAt int64
	)

	err := s.db.QueryRowxContext(ctx, query, pubID[:]).Scan(&inst.ID, &rawPubID, &inst.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("%w: failed to get instance: %w", storage.ErrStorage, err)
	}

	inst.PubID, err = uuid.FromBytes(rawPubID)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt instance pub_id: %w", storage.ErrStorage, err)
	}
	inst.DateCreated = time.Unix(createdAt, 0)

	return &inst, nil
}

// instanceIDs резолвит pub_id узлов в локальные id внутри транзакции.
// Незнакомые узлы регистрируются: операции могут прийти транзитом
// от узла, с которым нет прямого сопряжения.
// Новые id попадают в кэш только после commit (см. remember).
type instanceIDs struct {
	s       *Storage
	pending map[uuid.UUID]int64
}

func (s *Storage) newInstanceIDs() *instanceIDs {
	return &instanceIDs{s: s, pending: make(map[uuid.UUID]int64)}
}

func (r *instanceIDs) resolve(ctx context.Context, tx *sqlx.Tx, pubID uuid.UUID) (int64, error) {
	if id, ok := r.s.instances.Get(pubID); ok {
		return id, nil
	}
	if id, ok := r.pending[pubID]; ok {
		return id, nil
	}

	insert := `INSERT INTO instance (pub_id, name, date_created) VALUES (?, '', ?) ON CONFLICT (pub_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, pubID[:], time.Now().Unix()); err != nil {
		return 0, fmt.Errorf("failed to register instance %s: %w", pubID, err)
	}

	var id int64
	if err := tx.QueryRowxContext(ctx, `SELECT id FROM instance WHERE pub_id = ?`, pubID[:]).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve instance %s: %w", pubID, err)
	}

	r.pending[pubID] = id
	return id, nil
}

// remember переносит разрешенные id в общий кэш после успешного commit
func (r *instanceIDs) remember() {
	for pubID, id := range r.pending {
		r.s.instances.Add(pubID, id)
	}
}
