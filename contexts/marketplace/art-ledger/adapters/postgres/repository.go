package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the ledger tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&ledgerModel{},
		&listingModel{},
		&transferModel{},
		&idempotencyModel{},
		&outboxModel{},
	)
}

func (r *Repository) CreateLedger(ctx context.Context, ledger entities.Ledger, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := ledgerModelFromEntity(ledger)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyInitialized
			}
			return err
		}
		return insertOutbox(tx, event)
	})
}

func (r *Repository) GetLedger(ctx context.Context) (entities.Ledger, error) {
	row, err := loadLedger(r.db.WithContext(ctx))
	if err != nil {
		return entities.Ledger{}, err
	}
	return row.toEntity()
}

func (r *Repository) PutListingWithOutbox(ctx context.Context, listing entities.Listing, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadLedger(tx.Clauses(clause.Locking{Strength: "SHARE"})); err != nil {
			return err
		}
		row := listingModelFromEntity(listing)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "artist"}},
			DoUpdates: clause.AssignmentColumns([]string{"original_asset_hash", "protected_asset_hash", "price", "listed_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return insertOutbox(tx, event)
	})
}

func (r *Repository) SettlePurchase(
	ctx context.Context,
	artist string,
	plan ports.PurchasePlan,
) (entities.Settlement, error) {
	var settlement entities.Settlement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledgerRow, err := loadLedger(tx.Clauses(clause.Locking{Strength: "UPDATE"}))
		if err != nil {
			return err
		}
		ledger, err := ledgerRow.toEntity()
		if err != nil {
			return err
		}

		var listingRow listingModel
		if err := tx.Where("artist = ?", strings.TrimSpace(artist)).First(&listingRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrListingNotFound
			}
			return err
		}
		listing, err := listingRow.toEntity()
		if err != nil {
			return err
		}

		planned, event, err := plan(ledger, listing)
		if err != nil {
			return err
		}
		ledger.ApplySettlement(planned)
		if err := updateLedger(tx, ledger); err != nil {
			return err
		}
		if err := tx.Where("artist = ?", listing.Artist).Delete(&listingModel{}).Error; err != nil {
			return err
		}
		for _, transfer := range planned.Transfers {
			if err := insertTransfer(tx, transfer); err != nil {
				return err
			}
		}
		if err := insertOutbox(tx, event); err != nil {
			return err
		}
		settlement = planned
		return nil
	})
	if err != nil {
		return entities.Settlement{}, err
	}
	r.logger.Debug("ledger settlement committed",
		"event", "ledger_postgres_settlement_committed",
		"module", "marketplace/art-ledger",
		"layer", "adapter",
		"settlement_id", settlement.SettlementID,
		"transfer_count", len(settlement.Transfers),
	)
	return settlement, nil
}

func (r *Repository) WithdrawCommission(ctx context.Context, plan ports.WithdrawalPlan) (entities.Withdrawal, error) {
	var withdrawal entities.Withdrawal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledgerRow, err := loadLedger(tx.Clauses(clause.Locking{Strength: "UPDATE"}))
		if err != nil {
			return err
		}
		ledger, err := ledgerRow.toEntity()
		if err != nil {
			return err
		}
		planned, event, err := plan(ledger)
		if err != nil {
			return err
		}
		ledger.ApplyWithdrawal(planned)
		if err := updateLedger(tx, ledger); err != nil {
			return err
		}
		if err := insertTransfer(tx, planned.Transfer); err != nil {
			return err
		}
		if err := insertOutbox(tx, event); err != nil {
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

func (r *Repository) GetListing(ctx context.Context, artist string) (entities.Listing, error) {
	var row listingModel
	err := r.db.WithContext(ctx).
		Where("artist = ?", strings.TrimSpace(artist)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Listing{}, domainerrors.ErrListingNotFound
		}
		return entities.Listing{}, err
	}
	return row.toEntity()
}

func (r *Repository) ListListings(ctx context.Context, limit int, offset int) ([]entities.Listing, error) {
	tx := r.db.WithContext(ctx).Order("artist ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	var rows []listingModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Listing, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) CountListings(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&listingModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *Repository) ListPendingTransfers(ctx context.Context, limit int) ([]entities.Transfer, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []transferModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.TransferStatusPending)).
		Order("requested_at ASC").
		Order("transfer_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return transfersFromRows(rows)
}

func (r *Repository) MarkTransferExecuted(ctx context.Context, transferID string, executedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&transferModel{}).
		Where("transfer_id = ?", strings.TrimSpace(transferID)).
		Where("status = ?", string(entities.TransferStatusPending)).
		Updates(map[string]any{
			"status":      string(entities.TransferStatusExecuted),
			"executed_at": executedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&transferModel{}).
		Where("transfer_id = ?", strings.TrimSpace(transferID)).
		Count(&count).
		Error; err != nil {
		return err
	}
	if count == 0 {
		return domainerrors.ErrTransferNotFound
	}
	return nil
}

func (r *Repository) ListTransfersByRecipient(
	ctx context.Context,
	recipient string,
	limit int,
) ([]entities.Transfer, error) {
	tx := r.db.WithContext(ctx).
		Where("recipient = ?", strings.TrimSpace(recipient)).
		Order("requested_at ASC").
		Order("transfer_id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []transferModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return transfersFromRows(rows)
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toMessage())
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}
	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.UTC().After(now.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:             row.Key,
		RequestHash:     row.RequestHash,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) PutRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		RequestHash:     record.RequestHash,
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}
	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != row.RequestHash || !bytes.Equal(existing.ResponsePayload, row.ResponsePayload) {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func loadLedger(tx *gorm.DB) (ledgerModel, error) {
	var row ledgerModel
	if err := tx.Where("ledger_id = ?", defaultLedgerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledgerModel{}, domainerrors.ErrNotInitialized
		}
		return ledgerModel{}, err
	}
	return row, nil
}

func updateLedger(tx *gorm.DB, ledger entities.Ledger) error {
	row := ledgerModelFromEntity(ledger)
	result := tx.Model(&ledgerModel{}).
		Where("ledger_id = ?", defaultLedgerID).
		Updates(map[string]any{
			"accrued_commission": row.AccruedCommission,
			"updated_at":         row.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func insertTransfer(tx *gorm.DB, transfer entities.Transfer) error {
	row := transferModelFromEntity(transfer)
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func insertOutbox(tx *gorm.DB, envelope ports.EventEnvelope) error {
	row, err := outboxModelFromEnvelope(envelope)
	if err != nil {
		return err
	}
	return tx.Create(&row).Error
}

func outboxModelFromEnvelope(envelope ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		return outboxModel{}, domainerrors.ErrInvalidInput
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func transfersFromRows(rows []transferModel) ([]entities.Transfer, error) {
	items := make([]entities.Transfer, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
