package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	HasOverlap(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error)
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	CountConfirmedByEmail(ctx context.Context, email string) (int, error)
	Confirm(ctx context.Context, payment domain.Payment, at time.Time) (*domain.Booking, bool, error)
	Cancel(ctx context.Context, id uuid.UUID, from []domain.BookingStatus) (*domain.Booking, error)
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, reference, kind, user_id, guest_name, guest_email, guest_phone,
	contact_name, contact_email, contact_phone, property_id, check_in, check_out, guests,
	instance_id, attendees, price_breakdown, booking_status, payment_status, payment_id,
	amount_paid, confirmed_at, expires_at, created_at, updated_at`

func holdingStatuses() []string {
	return statusNames([]domain.BookingStatus{
		domain.BookingStatusPendingPayment,
		domain.BookingStatusConfirmed,
		domain.BookingStatusCheckedIn,
	})
}

func statusNames(statuses []domain.BookingStatus) []string {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	return names
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func hasOverlap(ctx context.Context, q querier, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE property_id=$1 AND booking_status = ANY($2) AND check_in < $4 AND check_out > $3)`,
		propertyID, holdingStatuses(), checkIn, checkOut).Scan(&exists)
	if err != nil {
		return false, translate("check overlap", err)
	}
	return exists, nil
}

// HasOverlap uses half-open ranges: a stay ending on a day does not collide
// with one starting that day.
func (r *PGBookingRepository) HasOverlap(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	return hasOverlap(ctx, r.db, propertyID, checkIn, checkOut)
}

// CreatePending reserves inventory and inserts the booking in one transaction.
// Property dates are serialised per property with an advisory lock and
// re-checked inside it; experience seats use a conditional increment so two
// writers can never push an instance past capacity.
func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	if err := booking.CheckShape(); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	price, err := json.Marshal(booking.Price)
	if err != nil {
		return fmt.Errorf("encode price breakdown: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return translate("begin create booking", err)
	}
	defer tx.Rollback(ctx)

	if stay := booking.Property; stay != nil {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, stay.PropertyID.String()); err != nil {
			return translate("lock property", err)
		}
		clash, err := hasOverlap(ctx, tx, stay.PropertyID, stay.CheckIn, stay.CheckOut)
		if err != nil {
			return err
		}
		if clash {
			return fmt.Errorf("property %s: %w", stay.PropertyID, domain.ErrAvailabilityConflict)
		}
	}

	for _, hold := range booking.Holds() {
		if err := reserveSeats(ctx, tx, hold); err != nil {
			return err
		}
	}

	var (
		guestName, guestEmail, guestPhone *string
		propertyID, instanceID            *uuid.UUID
		checkIn, checkOut                 *time.Time
		guests, attendees                 *int
	)
	if g := booking.Owner.Guest; g != nil {
		guestName, guestEmail, guestPhone = &g.Name, &g.Email, &g.Phone
	}
	if s := booking.Property; s != nil {
		propertyID, checkIn, checkOut, guests = &s.PropertyID, &s.CheckIn, &s.CheckOut, &s.Guests
	}
	if e := booking.Experience; e != nil {
		instanceID, attendees = &e.InstanceID, &e.Attendees
	}

	err = tx.QueryRow(ctx, `INSERT INTO bookings (reference, kind, user_id, guest_name, guest_email, guest_phone,
			contact_name, contact_email, contact_phone, property_id, check_in, check_out, guests,
			instance_id, attendees, price_breakdown, total_amount_due, currency, booking_status, payment_status,
			amount_paid, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 0, $21)
		RETURNING id, created_at, updated_at`,
		booking.Reference, string(booking.Kind), booking.Owner.UserID, guestName, guestEmail, guestPhone,
		booking.Contact.Name, booking.Contact.Email, booking.Contact.Phone, propertyID, checkIn, checkOut, guests,
		instanceID, attendees, price, int64(booking.Price.TotalAmountDue), booking.Price.Currency,
		string(booking.Status), string(booking.PaymentStatus), booking.ExpiresAt).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return translate("insert booking", err)
	}

	for _, hold := range booking.Holds() {
		if _, err := tx.Exec(ctx, `INSERT INTO experience_bookings (booking_id, instance_id, attendees, is_addon) VALUES ($1, $2, $3, $4)`,
			booking.ID, hold.InstanceID, hold.Attendees, hold.IsAddon); err != nil {
			return translate("insert experience hold", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return translate("commit booking", err)
	}
	return nil
}

func reserveSeats(ctx context.Context, tx pgx.Tx, hold domain.CapacityHold) error {
	tag, err := tx.Exec(ctx, `UPDATE experience_instances
		SET current_attendees = current_attendees + $2, updated_at = now()
		WHERE id=$1 AND current_attendees + $2 <= max_capacity`, hold.InstanceID, hold.Attendees)
	if err != nil {
		return translate("reserve seats", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM experience_instances WHERE id=$1)`, hold.InstanceID).Scan(&exists); err != nil {
		return translate("reserve seats", err)
	}
	if !exists {
		return fmt.Errorf("experience instance %s: %w", hold.InstanceID, domain.ErrNotFound)
	}
	return fmt.Errorf("experience instance %s: %w", hold.InstanceID, domain.ErrAvailabilityConflict)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, translate("get booking", err)
	}
	if err := r.loadAddons(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) loadAddons(ctx context.Context, b *domain.Booking) error {
	if b.Property == nil {
		return nil
	}
	rows, err := r.db.Query(ctx, `SELECT instance_id, attendees FROM experience_bookings WHERE booking_id=$1 AND is_addon ORDER BY id`, b.ID)
	if err != nil {
		return translate("list addons", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.AddonSelection
		if err := rows.Scan(&a.InstanceID, &a.Attendees); err != nil {
			return translate("scan addon", err)
		}
		b.Property.Addons = append(b.Property.Addons, a)
	}
	return translate("list addons", rows.Err())
}

// CountConfirmedByEmail counts bookings that reached payment under an email.
// Abandoned or cancelled holds are not prior bookings.
func (r *PGBookingRepository) CountConfirmedByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE lower(contact_email)=lower($1) AND booking_status = ANY($2)`,
		email, []string{
			string(domain.BookingStatusConfirmed),
			string(domain.BookingStatusCheckedIn),
			string(domain.BookingStatusCompleted),
		}).Scan(&n)
	if err != nil {
		return 0, translate("count bookings by email", err)
	}
	return n, nil
}

// Confirm records a successful payment and moves its booking to
// Confirmed/Paid. A gateway payment id that was already recorded returns the
// booking unchanged with replayed=true, so duplicate callbacks are harmless.
func (r *PGBookingRepository) Confirm(ctx context.Context, payment domain.Payment, at time.Time) (*domain.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, translate("begin confirm", err)
	}
	defer tx.Rollback(ctx)

	var status, paymentStatus string
	if err := tx.QueryRow(ctx, `SELECT booking_status, payment_status FROM bookings WHERE id=$1 FOR UPDATE`, payment.BookingID).
		Scan(&status, &paymentStatus); err != nil {
		return nil, false, translate("lock booking", err)
	}

	var seen int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM payments WHERE gateway_payment_id=$1 AND status=$2`,
		payment.GatewayPaymentID, string(domain.PaymentSuccessful)).Scan(&seen); err != nil {
		return nil, false, translate("find payment", err)
	}
	if seen > 0 {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, translate("commit confirm", err)
		}
		b, err := r.GetByID(ctx, payment.BookingID)
		return b, true, err
	}

	switch {
	case domain.PaymentStatus(paymentStatus) == domain.PaymentStatusPaid:
		return nil, false, fmt.Errorf("booking %s: %w", payment.BookingID, domain.ErrAlreadyPaid)
	case domain.BookingStatus(status) != domain.BookingStatusPendingPayment:
		return nil, false, fmt.Errorf("booking %s is %s: %w", payment.BookingID, status, domain.ErrInvalidState)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO payments (booking_id, gateway_order_id, gateway_payment_id, amount, currency, method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		payment.BookingID, payment.GatewayOrderID, payment.GatewayPaymentID, int64(payment.Amount), payment.Currency,
		payment.Method, string(domain.PaymentSuccessful)); err != nil {
		return nil, false, translate("insert payment", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings
		SET booking_status=$2, payment_status=$3, payment_id=$4, amount_paid=$5, confirmed_at=$6, expires_at=NULL, updated_at=now()
		WHERE id=$1`,
		payment.BookingID, string(domain.BookingStatusConfirmed), string(domain.PaymentStatusPaid),
		payment.GatewayPaymentID, int64(payment.Amount), at); err != nil {
		return nil, false, translate("confirm booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, translate("commit confirm", err)
	}
	b, err := r.GetByID(ctx, payment.BookingID)
	return b, false, err
}

// Cancel moves a booking in one of the from statuses to Cancelled and releases
// every seat it held. Only statuses that hold inventory are accepted, so the
// release never runs twice.
func (r *PGBookingRepository) Cancel(ctx context.Context, id uuid.UUID, from []domain.BookingStatus) (*domain.Booking, error) {
	var allowed []domain.BookingStatus
	for _, st := range from {
		if st.HoldsInventory() {
			allowed = append(allowed, st)
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("booking %s cannot be cancelled: %w", id, domain.ErrInvalidState)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, translate("begin cancel", err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET booking_status=$2, expires_at=NULL, updated_at=now()
		WHERE id=$1 AND booking_status = ANY($3)
		RETURNING `+bookingColumns, id, string(domain.BookingStatusCancelled), statusNames(allowed)))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("booking %s cannot be cancelled: %w", id, domain.ErrInvalidState)
	}
	if err != nil {
		return nil, translate("cancel booking", err)
	}

	if err := releaseSeats(ctx, tx, []uuid.UUID{id}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translate("commit cancel", err)
	}
	if err := r.loadAddons(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ExpirePendingBefore cancels unpaid holds whose expiry has passed and frees
// their seats.
func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, translate("begin expire", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `UPDATE bookings SET booking_status=$1, updated_at=now()
		WHERE booking_status=$2 AND payment_status <> $3 AND expires_at IS NOT NULL AND expires_at <= $4
		RETURNING `+bookingColumns,
		string(domain.BookingStatusCancelled), string(domain.BookingStatusPendingPayment), string(domain.PaymentStatusPaid), deadline)
	if err != nil {
		return nil, translate("expire bookings", err)
	}
	var (
		expired []domain.Booking
		ids     []uuid.UUID
	)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, translate("scan expired booking", err)
		}
		expired = append(expired, *b)
		ids = append(ids, b.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate("expire bookings", err)
	}

	if len(ids) > 0 {
		if err := releaseSeats(ctx, tx, ids); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translate("commit expire", err)
	}
	return expired, nil
}

func releaseSeats(ctx context.Context, tx pgx.Tx, bookingIDs []uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE experience_instances ei
		SET current_attendees = GREATEST(ei.current_attendees - held.attendees, 0), updated_at = now()
		FROM (SELECT instance_id, sum(attendees) AS attendees FROM experience_bookings
		      WHERE booking_id = ANY($1) GROUP BY instance_id) held
		WHERE ei.id = held.instance_id`, bookingIDs)
	return translate("release seats", err)
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b                                 domain.Booking
		kind, status, paymentStatus       string
		guestName, guestEmail, guestPhone *string
		propertyID, instanceID            *uuid.UUID
		checkIn, checkOut                 *time.Time
		guests, attendees                 *int
		price                             []byte
		amountPaid                        int64
	)
	if err := row.Scan(&b.ID, &b.Reference, &kind, &b.Owner.UserID, &guestName, &guestEmail, &guestPhone,
		&b.Contact.Name, &b.Contact.Email, &b.Contact.Phone, &propertyID, &checkIn, &checkOut, &guests,
		&instanceID, &attendees, &price, &status, &paymentStatus, &b.PaymentID,
		&amountPaid, &b.ConfirmedAt, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	b.Kind = domain.BookingKind(kind)
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	b.AmountPaid = domain.Money(amountPaid)
	if guestEmail != nil {
		b.Owner.Guest = &domain.GuestContact{Name: deref(guestName), Email: *guestEmail, Phone: deref(guestPhone)}
	}
	if propertyID != nil && checkIn != nil && checkOut != nil {
		b.Property = &domain.PropertyStay{PropertyID: *propertyID, CheckIn: *checkIn, CheckOut: *checkOut, Guests: derefInt(guests)}
	}
	if instanceID != nil {
		b.Experience = &domain.ExperienceSlot{InstanceID: *instanceID, Attendees: derefInt(attendees)}
	}
	if len(price) > 0 {
		if err := json.Unmarshal(price, &b.Price); err != nil {
			return nil, fmt.Errorf("decode price breakdown: %w", err)
		}
	}
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

var _ BookingRepository = (*PGBookingRepository)(nil)
