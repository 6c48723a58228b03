package mysql

import (
	"context"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

type RaffleRepository struct {
	db *gorm.DB
	tx *TxManager
}

func NewRaffleRepository(db *gorm.DB, tx *TxManager) *RaffleRepository {
	return &RaffleRepository{db: db, tx: tx}
}

func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	if raffle.ID.IsZero() {
		raffle.ID = primitive.NewObjectID()
	}
	return translateError("create raffle", conn(ctx, r.db).Create(newRaffleRecord(raffle)).Error)
}

func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var rec raffleRecord
	if err := conn(ctx, r.db).First(&rec, "id = ?", id.Hex()).Error; err != nil {
		return nil, notFound(err, "raffle", id.Hex())
	}
	return rec.model(), nil
}

func (r *RaffleRepository) FindActive(ctx context.Context) (*models.Raffle, error) {
	var rec raffleRecord
	err := conn(ctx, r.db).Where("active = ?", true).Order("created_at DESC").First(&rec).Error
	if err != nil {
		return nil, notFound(err, "raffle", "active")
	}
	return rec.model(), nil
}

func (r *RaffleRepository) FindAll(ctx context.Context) ([]*models.Raffle, error) {
	var recs []raffleRecord
	if err := conn(ctx, r.db).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, translateError("find raffles", err)
	}
	out := make([]*models.Raffle, len(recs))
	for i := range recs {
		out[i] = recs[i].model()
	}
	return out, nil
}

func (r *RaffleRepository) Update(ctx context.Context, raffle *models.Raffle) error {
	rec := newRaffleRecord(raffle)
	res := conn(ctx, r.db).Model(&raffleRecord{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
		"product_name":   rec.ProductName,
		"description":    rec.Description,
		"images":         jsonImages(rec.Images),
		"price":          rec.Price,
		"total_tickets":  rec.TotalTickets,
		"active":         rec.Active,
		"paused":         rec.Paused,
		"winner_id":      rec.WinnerID,
		"winning_number": rec.WinningNumber,
		"draw_date":      rec.DrawDate,
		"updated_at":     rec.UpdatedAt,
	})
	if res.Error != nil {
		return translateError("update raffle", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.exists(ctx, raffle.ID)
	}
	return nil
}

// exists reports NotFound for a missing raffle. MySQL counts only changed
// rows, so an update that wrote identical values affects none.
func (r *RaffleRepository) exists(ctx context.Context, id primitive.ObjectID) error {
	var n int64
	if err := conn(ctx, r.db).Model(&raffleRecord{}).Where("id = ?", id.Hex()).Count(&n).Error; err != nil {
		return translateError("find raffle", err)
	}
	if n == 0 {
		return models.NotFoundf("raffle", id.Hex())
	}
	return nil
}

func (r *RaffleRepository) DeactivateAll(ctx context.Context, except primitive.ObjectID) error {
	err := conn(ctx, r.db).Model(&raffleRecord{}).
		Where("id <> ? AND active = ?", except.Hex(), true).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now()}).Error
	return translateError("deactivate raffles", err)
}

// AdjustCounters locks the row, reads the counters and applies the deltas
// with GREATEST so neither drops below zero.
func (r *RaffleRepository) AdjustCounters(ctx context.Context, id primitive.ObjectID, reservedDelta, soldDelta int) (models.RaffleCounters, error) {
	var before models.RaffleCounters
	err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		var rec raffleRecord
		err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "sold_tickets", "reserved_tickets").
			First(&rec, "id = ?", id.Hex()).Error
		if err != nil {
			return notFound(err, "raffle", id.Hex())
		}
		before = models.RaffleCounters{SoldTickets: rec.SoldTickets, ReservedTickets: rec.ReservedTickets}
		return conn(ctx, r.db).Model(&raffleRecord{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
			"reserved_tickets": gorm.Expr("GREATEST(reserved_tickets + ?, 0)", reservedDelta),
			"sold_tickets":     gorm.Expr("GREATEST(sold_tickets + ?, 0)", soldDelta),
			"updated_at":       time.Now(),
		}).Error
	})
	return before, translateError("adjust raffle counters", err)
}

func (r *RaffleRepository) SetCounters(ctx context.Context, id primitive.ObjectID, counters models.RaffleCounters) error {
	res := conn(ctx, r.db).Model(&raffleRecord{}).Where("id = ?", id.Hex()).Updates(map[string]interface{}{
		"sold_tickets":     counters.SoldTickets,
		"reserved_tickets": counters.ReservedTickets,
		"updated_at":       time.Now(),
	})
	if res.Error != nil {
		return translateError("set raffle counters", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.exists(ctx, id)
	}
	return nil
}

func (r *RaffleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res := conn(ctx, r.db).Delete(&raffleRecord{}, "id = ?", id.Hex())
	if res.Error != nil {
		return translateError("delete raffle", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NotFoundf("raffle", id.Hex())
	}
	return nil
}
