package mysql

import (
	"encoding/json"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identifiers keep the 24-character hex form used across the API.

type raffleRecord struct {
	ID              string    `gorm:"primaryKey;size:24"`
	ProductName     string    `gorm:"size:255;not null"`
	Description     string    `gorm:"type:text"`
	Images          []string  `gorm:"serializer:json"`
	Price           float64   `gorm:"not null"`
	TotalTickets    int       `gorm:"not null"`
	SoldTickets     int       `gorm:"not null;default:0"`
	ReservedTickets int       `gorm:"not null;default:0"`
	Active          bool      `gorm:"index:idx_raffles_active"`
	Paused          bool
	WinnerID        *string   `gorm:"size:24"`
	WinningNumber   string    `gorm:"size:16"`
	DrawDate        *time.Time
	CreatedAt       time.Time `gorm:"index:idx_raffles_active"`
	UpdatedAt       time.Time
}

func (raffleRecord) TableName() string { return "raffles" }

type ticketRecord struct {
	ID            string     `gorm:"primaryKey;size:24"`
	RaffleID      string     `gorm:"size:24;not null;uniqueIndex:idx_tickets_number;index:idx_tickets_raffle_status,priority:1"`
	TicketNumber  string     `gorm:"size:16;not null;uniqueIndex:idx_tickets_number"`
	Status        string     `gorm:"size:16;not null;index:idx_tickets_expiry;index:idx_tickets_raffle_status,priority:2"`
	UserID        *string    `gorm:"size:24;index"`
	ReservedAt    *time.Time `gorm:"index:idx_tickets_expiry"`
	PurchasedAt   *time.Time
	TransactionID *string    `gorm:"size:24"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ticketRecord) TableName() string { return "tickets" }

type paymentRecord struct {
	ID              string    `gorm:"primaryKey;size:24"`
	UserID          string    `gorm:"size:24;not null;index"`
	RaffleID        string    `gorm:"size:24;not null;index:idx_payments_raffle_status,priority:1"`
	FullName        string    `gorm:"size:255"`
	IDNumber        string    `gorm:"column:id_number;size:64"`
	PhoneNumber     string    `gorm:"size:32"`
	Email           string    `gorm:"size:191"`
	SelectedNumbers []string  `gorm:"serializer:json"`
	Method          string    `gorm:"size:32"`
	TotalAmountUSD  float64   `gorm:"column:total_amount_usd"`
	ProofOfPayment  string    `gorm:"size:512"`
	Status          string    `gorm:"size:16;not null;index:idx_payments_status;index:idx_payments_raffle_status,priority:2"`
	RejectionReason string    `gorm:"type:text"`
	ReviewedBy      *string   `gorm:"size:24"`
	ReviewedAt      *time.Time
	CreatedAt       time.Time `gorm:"index:idx_payments_status"`
	UpdatedAt       time.Time
}

func (paymentRecord) TableName() string { return "payments" }

type userRecord struct {
	ID          string `gorm:"primaryKey;size:24"`
	FullName    string `gorm:"size:255"`
	IDNumber    string `gorm:"column:id_number;size:64;uniqueIndex:idx_users_id_number"`
	Email       string `gorm:"size:191;uniqueIndex:idx_users_email"`
	PhoneNumber string `gorm:"size:32"`
	Password    string `gorm:"size:255"`
	Role        string `gorm:"size:16;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRecord) TableName() string { return "users" }

type notificationRecord struct {
	ID          string `gorm:"primaryKey;size:24"`
	UserID      string `gorm:"size:24;not null;index"`
	Type        string `gorm:"size:32"`
	Title       string `gorm:"size:255"`
	Message     string `gorm:"type:text"`
	PhoneNumber string `gorm:"size:32"`
	Channel     string `gorm:"size:16"`
	Status      string `gorm:"size:16"`
	MessageID   string `gorm:"size:128"`
	Error       string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (notificationRecord) TableName() string { return "notifications" }

func oid(hex string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(hex)
	return id
}

func oidPtr(hex *string) *primitive.ObjectID {
	if hex == nil {
		return nil
	}
	id := oid(*hex)
	return &id
}

func hexPtr(id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	s := id.Hex()
	return &s
}

func newRaffleRecord(r *models.Raffle) *raffleRecord {
	return &raffleRecord{
		ID:              r.ID.Hex(),
		ProductName:     r.ProductName,
		Description:     r.Description,
		Images:          r.Images,
		Price:           r.Price,
		TotalTickets:    r.TotalTickets,
		SoldTickets:     r.SoldTickets,
		ReservedTickets: r.ReservedTickets,
		Active:          r.Active,
		Paused:          r.Paused,
		WinnerID:        hexPtr(r.Winner),
		WinningNumber:   string(r.WinningNumber),
		DrawDate:        r.DrawDate,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (rec *raffleRecord) model() *models.Raffle {
	images := rec.Images
	if images == nil {
		images = []string{}
	}
	return &models.Raffle{
		ID:              oid(rec.ID),
		ProductName:     rec.ProductName,
		Description:     rec.Description,
		Images:          images,
		Price:           rec.Price,
		TotalTickets:    rec.TotalTickets,
		SoldTickets:     rec.SoldTickets,
		ReservedTickets: rec.ReservedTickets,
		Active:          rec.Active,
		Paused:          rec.Paused,
		Winner:          oidPtr(rec.WinnerID),
		WinningNumber:   models.TicketNumber(rec.WinningNumber),
		DrawDate:        rec.DrawDate,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func newTicketRecord(t *models.Ticket) ticketRecord {
	return ticketRecord{
		ID:            t.ID.Hex(),
		RaffleID:      t.RaffleID.Hex(),
		TicketNumber:  string(t.Number),
		Status:        string(t.Status),
		UserID:        hexPtr(t.UserID),
		ReservedAt:    t.ReservedAt,
		PurchasedAt:   t.PurchasedAt,
		TransactionID: hexPtr(t.TransactionID),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (rec *ticketRecord) model() *models.Ticket {
	return &models.Ticket{
		ID:            oid(rec.ID),
		RaffleID:      oid(rec.RaffleID),
		Number:        models.TicketNumber(rec.TicketNumber),
		Status:        models.TicketStatus(rec.Status),
		UserID:        oidPtr(rec.UserID),
		ReservedAt:    rec.ReservedAt,
		PurchasedAt:   rec.PurchasedAt,
		TransactionID: oidPtr(rec.TransactionID),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func newPaymentRecord(p *models.Payment) *paymentRecord {
	return &paymentRecord{
		ID:              p.ID.Hex(),
		UserID:          p.UserID.Hex(),
		RaffleID:        p.RaffleID.Hex(),
		FullName:        p.FullName,
		IDNumber:        p.IDNumber,
		PhoneNumber:     p.PhoneNumber,
		Email:           p.Email,
		SelectedNumbers: models.TicketNumberStrings(p.SelectedNumbers),
		Method:          string(p.Method),
		TotalAmountUSD:  p.TotalAmountUSD,
		ProofOfPayment:  p.ProofOfPayment,
		Status:          string(p.Status),
		RejectionReason: p.RejectionReason,
		ReviewedBy:      hexPtr(p.ReviewedBy),
		ReviewedAt:      p.ReviewedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (rec *paymentRecord) model() *models.Payment {
	numbers := make([]models.TicketNumber, len(rec.SelectedNumbers))
	for i, n := range rec.SelectedNumbers {
		numbers[i] = models.TicketNumber(n)
	}
	return &models.Payment{
		ID:              oid(rec.ID),
		UserID:          oid(rec.UserID),
		RaffleID:        oid(rec.RaffleID),
		FullName:        rec.FullName,
		IDNumber:        rec.IDNumber,
		PhoneNumber:     rec.PhoneNumber,
		Email:           rec.Email,
		SelectedNumbers: numbers,
		Method:          models.PaymentMethod(rec.Method),
		TotalAmountUSD:  rec.TotalAmountUSD,
		ProofOfPayment:  rec.ProofOfPayment,
		Status:          models.PaymentStatus(rec.Status),
		RejectionReason: rec.RejectionReason,
		ReviewedBy:      oidPtr(rec.ReviewedBy),
		ReviewedAt:      rec.ReviewedAt,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func newUserRecord(u *models.User) *userRecord {
	return &userRecord{
		ID:          u.ID.Hex(),
		FullName:    u.FullName,
		IDNumber:    u.IDNumber,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Password:    u.Password,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (rec *userRecord) model() *models.User {
	return &models.User{
		ID:          oid(rec.ID),
		FullName:    rec.FullName,
		IDNumber:    rec.IDNumber,
		Email:       rec.Email,
		PhoneNumber: rec.PhoneNumber,
		Password:    rec.Password,
		Role:        models.UserRole(rec.Role),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func newNotificationRecord(n *models.Notification) *notificationRecord {
	return &notificationRecord{
		ID:          n.ID.Hex(),
		UserID:      n.UserID.Hex(),
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		PhoneNumber: n.PhoneNumber,
		Channel:     n.Channel,
		Status:      n.Status,
		MessageID:   n.MessageID,
		Error:       n.Error,
		CreatedAt:   n.CreatedAt,
	}
}

func (rec *notificationRecord) model() *models.Notification {
	return &models.Notification{
		ID:          oid(rec.ID),
		UserID:      oid(rec.UserID),
		Type:        models.NotificationType(rec.Type),
		Title:       rec.Title,
		Message:     rec.Message,
		PhoneNumber: rec.PhoneNumber,
		Channel:     rec.Channel,
		Status:      rec.Status,
		MessageID:   rec.MessageID,
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt,
	}
}

// jsonImages encodes images for map updates, which skip the field serializer.
func jsonImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	b, _ := json.Marshal(images)
	return string(b)
}
