// Package profiles persists applicant profiles.
package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/domain/profile"
)

// Record is a stored profile plus its row identity.
type Record struct {
	ID     int64
	UserID int64
	Name   string

	profile.Profile

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Record) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name required")
	}
	if r.FirstName == "" || r.LastName == "" {
		return fmt.Errorf("first_name and last_name required")
	}
	if r.DOB == "" {
		return fmt.Errorf("dob required (MM/DD/YYYY)")
	}
	if len(r.SSNLast4) != 4 {
		return fmt.Errorf("ssn_last4 must be 4 digits")
	}
	if r.Email == "" {
		return fmt.Errorf("email required")
	}
	return nil
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const profileColumns = `id,user_id,name,first_name,last_name,dob,ssn_last4,phone,email,zip_code,
location_preference,max_distance_miles,slot_priority,
has_texas_license,has_oos_license,license_expired,license_lost_stolen,
is_commercial,id_only,needs_permit,age,notify_email,created_at,updated_at`

func (r *Repo) Create(ctx context.Context, rec Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO profiles(user_id,name,first_name,last_name,dob,ssn_last4,phone,email,zip_code,
  location_preference,max_distance_miles,slot_priority,
  has_texas_license,has_oos_license,license_expired,license_lost_stolen,
  is_commercial,id_only,needs_permit,age,notify_email)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
RETURNING id`,
		rec.UserID, rec.Name, rec.FirstName, rec.LastName, rec.DOB, rec.SSNLast4, rec.Phone, rec.Email, rec.ZIPCode,
		rec.LocationPreference, rec.MaxDistanceMiles, string(rec.SlotPriority),
		rec.HasTexasLicense, rec.HasOutOfStateLicense, rec.LicenseExpired, rec.LicenseLostStolen,
		rec.IsCommercial, rec.IDOnly, rec.NeedsPermit, rec.Age, rec.NotifyEmail,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (r *Repo) GetByIDForUser(ctx context.Context, id, userID int64) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1 AND user_id=$2`, id, userID)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, db.WrapNotFound(err)
	}
	return rec, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id, userID int64) error {
	return r.db.Exec(ctx, `DELETE FROM profiles WHERE id=$1 AND user_id=$2`, id, userID)
}

func scanRecord(row db.Row) (Record, error) {
	var rec Record
	var priority string
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Name, &rec.FirstName, &rec.LastName, &rec.DOB, &rec.SSNLast4,
		&rec.Phone, &rec.Email, &rec.ZIPCode,
		&rec.LocationPreference, &rec.MaxDistanceMiles, &priority,
		&rec.HasTexasLicense, &rec.HasOutOfStateLicense, &rec.LicenseExpired, &rec.LicenseLostStolen,
		&rec.IsCommercial, &rec.IDOnly, &rec.NeedsPermit, &rec.Age, &rec.NotifyEmail,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.SlotPriority = profile.SlotPriority(priority)
	return rec, nil
}
