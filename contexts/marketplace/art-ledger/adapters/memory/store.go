package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type outboxRow struct {
	message     ports.OutboxMessage
	publishedAt *time.Time
}

// Store keeps the whole ledger behind one mutex. Holding the write lock for the
// full operation gives every call the isolation of a serialized transaction.
type Store struct {
	mu sync.RWMutex

	ledger        *entities.Ledger
	listings      map[string]entities.Listing
	transfers     map[string]entities.Transfer
	transferOrder []string
	outbox        []outboxRow

	idempotency *cache.Cache
}

func NewStore() *Store {
	return &Store{
		listings:      make(map[string]entities.Listing),
		transfers:     make(map[string]entities.Transfer),
		transferOrder: make([]string, 0),
		outbox:        make([]outboxRow, 0),
		idempotency:   cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (s *Store) CreateLedger(_ context.Context, ledger entities.Ledger, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger != nil {
		return domainerrors.ErrAlreadyInitialized
	}
	row, err := newOutboxRow(event)
	if err != nil {
		return err
	}
	created := ledger
	s.ledger = &created
	s.outbox = append(s.outbox, row)
	return nil
}

func (s *Store) GetLedger(_ context.Context) (entities.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return entities.Ledger{}, domainerrors.ErrNotInitialized
	}
	return *s.ledger, nil
}

func (s *Store) PutListingWithOutbox(_ context.Context, listing entities.Listing, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return domainerrors.ErrNotInitialized
	}
	row, err := newOutboxRow(event)
	if err != nil {
		return err
	}
	s.listings[listing.Artist] = listing.Clone()
	s.outbox = append(s.outbox, row)
	return nil
}

func (s *Store) SettlePurchase(
	_ context.Context,
	artist string,
	plan ports.PurchasePlan,
) (entities.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return entities.Settlement{}, domainerrors.ErrNotInitialized
	}
	artist = strings.TrimSpace(artist)
	listing, exists := s.listings[artist]
	if !exists {
		return entities.Settlement{}, domainerrors.ErrListingNotFound
	}

	settlement, event, err := plan(*s.ledger, listing.Clone())
	if err != nil {
		return entities.Settlement{}, err
	}
	for _, transfer := range settlement.Transfers {
		if _, exists := s.transfers[transfer.TransferID]; exists {
			return entities.Settlement{}, domainerrors.ErrRepositoryInvariantBroke
		}
	}
	row, err := newOutboxRow(event)
	if err != nil {
		return entities.Settlement{}, err
	}

	updated := *s.ledger
	updated.ApplySettlement(settlement)
	s.ledger = &updated
	delete(s.listings, artist)
	for _, transfer := range settlement.Transfers {
		s.appendTransferLocked(transfer)
	}
	s.outbox = append(s.outbox, row)
	return settlement, nil
}

func (s *Store) WithdrawCommission(_ context.Context, plan ports.WithdrawalPlan) (entities.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return entities.Withdrawal{}, domainerrors.ErrNotInitialized
	}
	withdrawal, event, err := plan(*s.ledger)
	if err != nil {
		return entities.Withdrawal{}, err
	}
	if _, exists := s.transfers[withdrawal.Transfer.TransferID]; exists {
		return entities.Withdrawal{}, domainerrors.ErrRepositoryInvariantBroke
	}
	row, err := newOutboxRow(event)
	if err != nil {
		return entities.Withdrawal{}, err
	}

	updated := *s.ledger
	updated.ApplyWithdrawal(withdrawal)
	s.ledger = &updated
	s.appendTransferLocked(withdrawal.Transfer)
	s.outbox = append(s.outbox, row)
	return withdrawal, nil
}

func (s *Store) GetListing(_ context.Context, artist string) (entities.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, exists := s.listings[strings.TrimSpace(artist)]
	if !exists {
		return entities.Listing{}, domainerrors.ErrListingNotFound
	}
	return listing.Clone(), nil
}

func (s *Store) ListListings(_ context.Context, limit int, offset int) ([]entities.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artists := make([]string, 0, len(s.listings))
	for artist := range s.listings {
		artists = append(artists, artist)
	}
	sort.Strings(artists)
	if offset >= len(artists) {
		return []entities.Listing{}, nil
	}
	artists = artists[offset:]
	if limit > 0 && len(artists) > limit {
		artists = artists[:limit]
	}
	items := make([]entities.Listing, 0, len(artists))
	for _, artist := range artists {
		items = append(items, s.listings[artist].Clone())
	}
	return items, nil
}

func (s *Store) CountListings(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings), nil
}

func (s *Store) ListPendingTransfers(_ context.Context, limit int) ([]entities.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Transfer, 0)
	for _, transferID := range s.transferOrder {
		transfer := s.transfers[transferID]
		if transfer.Status != entities.TransferStatusPending {
			continue
		}
		items = append(items, transfer)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkTransferExecuted(_ context.Context, transferID string, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	transfer, exists := s.transfers[transferID]
	if !exists {
		return domainerrors.ErrTransferNotFound
	}
	if transfer.Status == entities.TransferStatusExecuted {
		return nil
	}
	executed := executedAt.UTC()
	transfer.Status = entities.TransferStatusExecuted
	transfer.ExecutedAt = &executed
	s.transfers[transferID] = transfer
	return nil
}

func (s *Store) ListTransfersByRecipient(
	_ context.Context,
	recipient string,
	limit int,
) ([]entities.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipient = strings.TrimSpace(recipient)
	items := make([]entities.Transfer, 0)
	for _, transferID := range s.transferOrder {
		transfer := s.transfers[transferID]
		if transfer.Recipient != recipient {
			continue
		}
		items = append(items, transfer)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.publishedAt != nil {
			continue
		}
		items = append(items, row.message)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID != outboxID {
			continue
		}
		published := publishedAt.UTC()
		s.outbox[i].publishedAt = &published
		return nil
	}
	return nil
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	value, found := s.idempotency.Get(key)
	if !found {
		return ports.IdempotencyRecord{}, false, nil
	}
	record := value.(ports.IdempotencyRecord)
	if !record.ExpiresAt.After(now) {
		s.idempotency.Delete(key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, found := s.idempotency.Get(record.Key); found {
		existing := value.(ports.IdempotencyRecord)
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		if !bytes.Equal(existing.ResponsePayload, record.ResponsePayload) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
	}
	// The cache janitor only evicts records whose TTL is still ahead of the
	// wall clock; GetRecord enforces ExpiresAt against the caller's clock.
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.idempotency.Set(record.Key, record, ttl)
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) appendTransferLocked(transfer entities.Transfer) {
	s.transfers[transfer.TransferID] = transfer
	s.transferOrder = append(s.transferOrder, transfer.TransferID)
}

func newOutboxRow(event ports.EventEnvelope) (outboxRow, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return outboxRow{}, err
	}
	return outboxRow{
		message: ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    event.OccurredAt.UTC(),
		},
	}, nil
}
