package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"
)

// Store persists the ledger in a single bbolt file. bbolt allows one writer at
// a time, so each Update transaction serializes the operation it wraps.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateLedger(_ context.Context, ledger entities.Ledger, event ports.EventEnvelope) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketLedger).Get(ledgerKey) != nil {
			return domainerrors.ErrAlreadyInitialized
		}
		if err := putJSON(tx.Bucket(bucketLedger), ledgerKey, fromLedger(ledger)); err != nil {
			return err
		}
		return appendOutbox(tx, event)
	})
}

func (s *Store) GetLedger(_ context.Context) (entities.Ledger, error) {
	var ledger entities.Ledger
	err := s.db.View(func(tx *bbolt.Tx) error {
		loaded, err := loadLedger(tx)
		ledger = loaded
		return err
	})
	return ledger, err
}

func (s *Store) PutListingWithOutbox(_ context.Context, listing entities.Listing, event ports.EventEnvelope) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := loadLedger(tx); err != nil {
			return err
		}
		if err := putJSON(tx.Bucket(bucketListings), []byte(listing.Artist), fromListing(listing)); err != nil {
			return err
		}
		return appendOutbox(tx, event)
	})
}

func (s *Store) SettlePurchase(
	_ context.Context,
	artist string,
	plan ports.PurchasePlan,
) (entities.Settlement, error) {
	var settlement entities.Settlement
	err := s.db.Update(func(tx *bbolt.Tx) error {
		ledger, err := loadLedger(tx)
		if err != nil {
			return err
		}
		key := []byte(strings.TrimSpace(artist))
		listings := tx.Bucket(bucketListings)
		raw := listings.Get(key)
		if raw == nil {
			return domainerrors.ErrListingNotFound
		}
		var listing listingRecord
		if err := json.Unmarshal(raw, &listing); err != nil {
			return err
		}

		planned, event, err := plan(ledger, listing.toEntity())
		if err != nil {
			return err
		}
		ledger.ApplySettlement(planned)
		if err := putJSON(tx.Bucket(bucketLedger), ledgerKey, fromLedger(ledger)); err != nil {
			return err
		}
		if err := listings.Delete(key); err != nil {
			return err
		}
		for _, transfer := range planned.Transfers {
			if err := insertTransfer(tx, transfer); err != nil {
				return err
			}
		}
		if err := appendOutbox(tx, event); err != nil {
			return err
		}
		settlement = planned
		return nil
	})
	if err != nil {
		return entities.Settlement{}, err
	}
	s.logger.Debug("bolt settlement committed",
		"event", "ledger_bolt_settlement_committed",
		"module", "marketplace/art-ledger",
		"layer", "adapter",
		"settlement_id", settlement.SettlementID,
	)
	return settlement, nil
}

func (s *Store) WithdrawCommission(_ context.Context, plan ports.WithdrawalPlan) (entities.Withdrawal, error) {
	var withdrawal entities.Withdrawal
	err := s.db.Update(func(tx *bbolt.Tx) error {
		ledger, err := loadLedger(tx)
		if err != nil {
			return err
		}
		planned, event, err := plan(ledger)
		if err != nil {
			return err
		}
		ledger.ApplyWithdrawal(planned)
		if err := putJSON(tx.Bucket(bucketLedger), ledgerKey, fromLedger(ledger)); err != nil {
			return err
		}
		if err := insertTransfer(tx, planned.Transfer); err != nil {
			return err
		}
		if err := appendOutbox(tx, event); err != nil {
			return err
		}
		withdrawal = planned
		return nil
	})
	if err != nil {
		return entities.Withdrawal{}, err
	}
	return withdrawal, nil
}

func (s *Store) GetListing(_ context.Context, artist string) (entities.Listing, error) {
	var listing entities.Listing
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketListings).Get([]byte(strings.TrimSpace(artist)))
		if raw == nil {
			return domainerrors.ErrListingNotFound
		}
		var record listingRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		listing = record.toEntity()
		return nil
	})
	return listing, err
}

// ListListings relies on bbolt keeping keys sorted, which orders by artist.
func (s *Store) ListListings(_ context.Context, limit int, offset int) ([]entities.Listing, error) {
	items := make([]entities.Listing, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketListings).Cursor()
		skipped := 0
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			var record listingRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			items = append(items, record.toEntity())
			if limit > 0 && len(items) >= limit {
				break
			}
		}
		return nil
	})
	return items, err
}

func (s *Store) CountListings(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketListings).ForEach(func(_, _ []byte) error {
			count++
			return nil
		})
	})
	return count, err
}

func (s *Store) ListPendingTransfers(_ context.Context, limit int) ([]entities.Transfer, error) {
	return s.scanTransfers(limit, func(record transferRecord) bool {
		return record.Status == string(entities.TransferStatusPending)
	})
}

func (s *Store) ListTransfersByRecipient(
	_ context.Context,
	recipient string,
	limit int,
) ([]entities.Transfer, error) {
	recipient = strings.TrimSpace(recipient)
	return s.scanTransfers(limit, func(record transferRecord) bool {
		return record.Recipient == recipient
	})
}

func (s *Store) MarkTransferExecuted(_ context.Context, transferID string, executedAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(bucketTransferIDs).Get([]byte(transferID))
		if seq == nil {
			return domainerrors.ErrTransferNotFound
		}
		transfers := tx.Bucket(bucketTransfers)
		var record transferRecord
		if err := json.Unmarshal(transfers.Get(seq), &record); err != nil {
			return err
		}
		if record.Status == string(entities.TransferStatusExecuted) {
			return nil
		}
		executed := executedAt.UTC()
		record.Status = string(entities.TransferStatusExecuted)
		record.ExecutedAt = &executed
		return putJSON(transfers, bytes.Clone(seq), record)
	})
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	items := make([]ports.OutboxMessage, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketOutbox).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var record outboxRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			if record.PublishedAt != nil {
				continue
			}
			items = append(items, record.toMessage())
			if limit > 0 && len(items) >= limit {
				break
			}
		}
		return nil
	})
	return items, err
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		outbox := tx.Bucket(bucketOutbox)
		cursor := outbox.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var record outboxRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			if record.OutboxID != outboxID {
				continue
			}
			published := publishedAt.UTC()
			record.PublishedAt = &published
			return putJSON(outbox, bytes.Clone(k), record)
		}
		return nil
	})
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var (
		record idempotencyRecord
		found  bool
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIdempotency)
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		if !record.ExpiresAt.After(now) {
			return bucket.Delete([]byte(key))
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return ports.IdempotencyRecord{}, false, err
	}
	return ports.IdempotencyRecord{
		Key:             record.Key,
		RequestHash:     record.RequestHash,
		ResponsePayload: record.ResponsePayload,
		ExpiresAt:       record.ExpiresAt.UTC(),
	}, true, nil
}

func (s *Store) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIdempotency)
		if raw := bucket.Get([]byte(record.Key)); raw != nil {
			var existing idempotencyRecord
			if err := json.Unmarshal(raw, &existing); err != nil {
				return err
			}
			if existing.RequestHash != record.RequestHash ||
				!bytes.Equal(existing.ResponsePayload, record.ResponsePayload) {
				return domainerrors.ErrIdempotencyKeyConflict
			}
		}
		return putJSON(bucket, []byte(record.Key), idempotencyRecord{
			Key:             record.Key,
			RequestHash:     record.RequestHash,
			ResponsePayload: record.ResponsePayload,
			ExpiresAt:       record.ExpiresAt.UTC(),
		})
	})
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) scanTransfers(limit int, keep func(transferRecord) bool) ([]entities.Transfer, error) {
	items := make([]entities.Transfer, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketTransfers).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var record transferRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			if !keep(record) {
				continue
			}
			items = append(items, record.toEntity())
			if limit > 0 && len(items) >= limit {
				break
			}
		}
		return nil
	})
	return items, err
}

func loadLedger(tx *bbolt.Tx) (entities.Ledger, error) {
	raw := tx.Bucket(bucketLedger).Get(ledgerKey)
	if raw == nil {
		return entities.Ledger{}, domainerrors.ErrNotInitialized
	}
	var record ledgerRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return entities.Ledger{}, err
	}
	return record.toEntity(), nil
}

func insertTransfer(tx *bbolt.Tx, transfer entities.Transfer) error {
	ids := tx.Bucket(bucketTransferIDs)
	if ids.Get([]byte(transfer.TransferID)) != nil {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	transfers := tx.Bucket(bucketTransfers)
	seq, err := transfers.NextSequence()
	if err != nil {
		return err
	}
	key := sequenceKey(seq)
	if err := putJSON(transfers, key, fromTransfer(transfer)); err != nil {
		return err
	}
	return ids.Put([]byte(transfer.TransferID), key)
}

func appendOutbox(tx *bbolt.Tx, event ports.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" {
		return errors.New("outbox event id is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	outbox := tx.Bucket(bucketOutbox)
	seq, err := outbox.NextSequence()
	if err != nil {
		return err
	}
	return putJSON(outbox, sequenceKey(seq), outboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	})
}

func putJSON(bucket *bbolt.Bucket, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return bucket.Put(key, raw)
}
