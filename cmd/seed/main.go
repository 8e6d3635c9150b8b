package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/session-scheduling/internal/booking"
	"github.com/skillswap/session-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedProfiles(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed availability profiles: %v", err)
	}

	log.Println("seed complete")
}

var timezones = []string{
	"UTC",
	"Europe/London",
	"Europe/Berlin",
	"America/New_York",
	"America/Los_Angeles",
	"Asia/Tokyo",
	"Asia/Kolkata",
	"Australia/Sydney",
}

func seedProfiles(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d provider availability profiles", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		providerID := uuid.New()

		weekly, err := json.Marshal(randomWeekly())
		if err != nil {
			return err
		}
		blocked, err := json.Marshal(randomBlockedDates())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO availability_profiles (
				provider_id, weekly_schedule, timezone, buffer_minutes,
				min_advance_hours, max_advance_days, auto_accept,
				blocked_dates, max_sessions_per_day, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		`,
			providerID,
			weekly,
			timezones[gofakeit.Number(0, len(timezones)-1)],
			gofakeit.Number(0, 4)*15,
			gofakeit.Number(1, 48),
			gofakeit.Number(7, 90),
			gofakeit.Bool(),
			blocked,
			gofakeit.Number(0, 6),
		)
		if err != nil {
			return err
		}

		if i < 5 {
			log.Printf("sample provider id: %s", providerID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability profiles seeded")
	return nil
}

func randomWeekly() booking.WeeklySchedule {
	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

	ws := make(booking.WeeklySchedule, len(days))
	for _, day := range days {
		enabled := gofakeit.Number(0, 9) < 7 // most days on
		sched := booking.DaySchedule{Enabled: enabled, Slots: []booking.SlotRange{}}
		if enabled {
			startHour := gofakeit.Number(7, 10)
			endHour := gofakeit.Number(15, 20)
			sched.Slots = append(sched.Slots, booking.SlotRange{
				Start: booking.TimeOfDay(startHour * 60),
				End:   booking.TimeOfDay(endHour * 60),
			})
			// Some providers declare a separate evening block.
			if gofakeit.Bool() {
				sched.Slots = append(sched.Slots, booking.SlotRange{
					Start: booking.TimeOfDay(20 * 60),
					End:   booking.TimeOfDay(22 * 60),
				})
			}
		}
		ws[day] = sched
	}
	return booking.NormalizeWeekly(ws)
}

func randomBlockedDates() []booking.BlockedDate {
	n := gofakeit.Number(0, 3)
	blocked := make([]booking.BlockedDate, 0, n)
	for i := 0; i < n; i++ {
		day := time.Now().AddDate(0, 0, gofakeit.Number(1, 60))
		blocked = append(blocked, booking.BlockedDate{
			Date:   day.Format(booking.DateFormat),
			Reason: fmt.Sprintf("away: %s", gofakeit.City()),
		})
	}
	return blocked
}
