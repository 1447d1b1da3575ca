package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	seedMembers(ctx, conn)
	eventID := seedEvent(ctx, conn)
	seedLineItems(ctx, conn, eventID)
	seedDiscounts(ctx, conn, eventID)

	log.Println("Seeding completed successfully!")
}

func seedMembers(ctx context.Context, conn *pgx.Conn) {
	members := []struct {
		Subject string
		Name    string
		Email   string
		DOB     string
		Roles   []string
	}{
		{"auth0|admin-1", "Alice Ashworth", "alice@ashworth.club", "1978-03-02", []string{"member", "organizer", "admin"}},
		{"auth0|organizer-1", "Owen Fields", "owen@ashworth.club", "1985-11-20", []string{"member", "organizer"}},
		{"auth0|member-1", "Maya Chen", "maya@example.com", "1990-01-15", []string{"member"}},
		{"auth0|member-2", "Ben Okafor", "ben@example.com", "2001-07-04", []string{"member"}},
		{"auth0|member-3", "Rosa Delgado", "rosa@example.com", "1958-05-30", []string{"member"}},
	}

	fmt.Println("Seeding Members...")
	for _, m := range members {
		_, err := conn.Exec(ctx, `
			INSERT INTO members (subject, full_name, email, date_of_birth, roles)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (subject) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email;
		`, m.Subject, m.Name, m.Email, m.DOB, m.Roles)
		if err != nil {
			log.Printf("Failed to seed member %s: %v", m.Email, err)
		}
	}
}

func seedEvent(ctx context.Context, conn *pgx.Conn) string {
	fmt.Println("Seeding Event...")
	start := time.Date(time.Now().Year()+1, time.June, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)

	var id string
	err := conn.QueryRow(ctx, `
		INSERT INTO events (title, description, starts_at, ends_at, deposit_amount, currency)
		VALUES ('Summer Retreat', 'Annual club retreat with lodging and meals.', $1, $2, 500, 'USD')
		RETURNING id;
	`, start, end).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to seed event: %v", err)
	}
	return id
}

func seedLineItems(ctx context.Context, conn *pgx.Conn, eventID string) {
	fmt.Println("Seeding Line Items...")
	items := []struct {
		Name       string
		Method     string
		Base       *float64
		Min        *float64
		Max        *float64
		Multiplier *float64
		Required   bool
		Position   int
	}{
		{"Registration fee", "fixed_amount", f(250), nil, nil, nil, true, 1},
		{"Membership dues", "age_multiplier", nil, f(1800), f(3600), f(60), true, 2},
		{"Service charge", "percentage", f(2.5), nil, nil, nil, false, 3},
		{"T-shirt", "fixed_amount", f(35), nil, nil, nil, false, 4},
	}
	for _, it := range items {
		_, err := conn.Exec(ctx, `
			INSERT INTO event_line_items (event_id, name, method, base_amount, min_amount, max_amount, multiplier, required, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`, eventID, it.Name, it.Method, it.Base, it.Min, it.Max, it.Multiplier, it.Required, it.Position)
		if err != nil {
			log.Printf("Failed to seed line item %s: %v", it.Name, err)
		}
	}
}

func seedDiscounts(ctx context.Context, conn *pgx.Conn, eventID string) {
	fmt.Println("Seeding Discounts...")
	discounts := []struct {
		Code   string
		Name   string
		Type   string
		Amount float64
	}{
		{"EARLYBIRD", "Early bird", "percentage", 10},
		{"SIBLING", "Sibling discount", "fixed_amount", 100},
	}
	for _, d := range discounts {
		_, err := conn.Exec(ctx, `
			INSERT INTO event_discounts (event_id, code, name, discount_type, amount)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id, code) DO NOTHING;
		`, eventID, d.Code, d.Name, d.Type, d.Amount)
		if err != nil {
			log.Printf("Failed to seed discount %s: %v", d.Code, err)
		}
	}
}

func f(v float64) *float64 { return &v }
