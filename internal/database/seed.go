package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// SeedFile is the YAML layout of DB_SEED_FILE.
type SeedFile struct {
	Locations []SeedLocation `yaml:"locations"`
	Users     []SeedUser     `yaml:"users"`
}

type SeedLocation struct {
	Name    string      `yaml:"name"`
	Address string      `yaml:"address"`
	Phone   string      `yaml:"phone"`
	Hours   []SeedHours `yaml:"hours"`
	Tables  []SeedTable `yaml:"tables"`
}

// SeedHours lists the weekdays sharing one opening window, e.g.
// days: [mon, tue, wed].
type SeedHours struct {
	Days  []string `yaml:"days"`
	Open  string   `yaml:"open"`
	Close string   `yaml:"close"`
}

type SeedTable struct {
	Number int    `yaml:"number"`
	Seats  int    `yaml:"seats"`
	Zone   string `yaml:"zone"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// parseWeekday accepts "mon", "Monday" and similar.
func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	wd, ok := weekdays[s[:3]]
	return wd, ok
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, l := range f.Locations {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("location %d: name is required", i+1)
		}
		if _, err := l.openingHours(); err != nil {
			return nil, fmt.Errorf("location %q: %w", l.Name, err)
		}
		seen := map[int]bool{}
		for _, t := range l.Tables {
			if t.Number <= 0 || t.Seats <= 0 {
				return nil, fmt.Errorf("location %q: table number and seats must be positive", l.Name)
			}
			if seen[t.Number] {
				return nil, fmt.Errorf("location %q: table %d listed twice", l.Name, t.Number)
			}
			seen[t.Number] = true
			if _, ok := model.ParseZone(zoneOrDefault(t.Zone)); !ok {
				return nil, fmt.Errorf("location %q: unknown zone %q", l.Name, t.Zone)
			}
		}
	}
	for _, u := range f.Users {
		role := strings.ToUpper(strings.TrimSpace(u.Role))
		if u.Email == "" || u.Password == "" || (role != model.RoleStaff && role != model.RoleAdmin) {
			return nil, fmt.Errorf("user %q: email, password and a STAFF or ADMIN role are required", u.Email)
		}
	}
	return &f, nil
}

func zoneOrDefault(z string) string {
	if strings.TrimSpace(z) == "" {
		return string(model.ZoneMainHall)
	}
	return z
}

func (l SeedLocation) openingHours() ([]model.OpeningHours, error) {
	var out []model.OpeningHours
	taken := map[time.Weekday]bool{}
	for _, h := range l.Hours {
		if _, err := timeslot.New(h.Open, h.Close); err != nil {
			return nil, fmt.Errorf("hours %s-%s: %w", h.Open, h.Close, err)
		}
		for _, d := range h.Days {
			wd, ok := parseWeekday(d)
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", d)
			}
			if taken[wd] {
				return nil, fmt.Errorf("weekday %q has two opening windows", d)
			}
			taken[wd] = true
			out = append(out, model.OpeningHours{Weekday: wd, Open: h.Open, Close: h.Close})
		}
	}
	return out, nil
}

// Seed loads path into an empty database. Locations are only inserted when
// none exist; users are inserted unless the email is taken.
func Seed(ctx context.Context, db *sql.DB, path string, bcryptCost int) error {
	if path == "" {
		return nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	f, err := ParseSeed(fh)
	if err != nil {
		return err
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations").Scan(&count); err != nil {
		return err
	}
	locations := repository.NewLocationRepo(db)
	tables := repository.NewTableRepo(db)
	if count == 0 {
		for _, sl := range f.Locations {
			hours, _ := sl.openingHours()
			loc := &model.Location{Name: sl.Name, Address: sl.Address, Phone: sl.Phone, IsActive: true, Hours: hours}
			if err := locations.Create(ctx, loc); err != nil {
				return fmt.Errorf("seed location %q: %w", sl.Name, err)
			}
			for _, st := range sl.Tables {
				zone, _ := model.ParseZone(zoneOrDefault(st.Zone))
				t := &model.Table{LocationID: loc.ID, Number: st.Number, Seats: st.Seats, Zone: zone, IsActive: true}
				if err := tables.Create(ctx, t); err != nil {
					return fmt.Errorf("seed table %d of %q: %w", st.Number, sl.Name, err)
				}
			}
			slog.Info("seeded location", slog.String("name", loc.Name), slog.Int("tables", len(sl.Tables)))
		}
	} else {
		slog.Info("locations present, skipping location seed", slog.Int("count", count))
	}

	users := repository.NewUserRepo(db)
	for _, su := range f.Users {
		_, err := users.Create(ctx, su.Email, su.Password, strings.ToUpper(strings.TrimSpace(su.Role)), bcryptCost)
		if errors.Is(err, repository.ErrEmailExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed user %q: %w", su.Email, err)
		}
		slog.Info("seeded user", slog.String("email", su.Email))
	}
	return nil
}
