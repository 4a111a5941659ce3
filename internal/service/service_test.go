package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"spendlog/expense-api/db"
	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/internal/reset"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := db.New("sqlite", ":memory:")
	require.NoError(t, err)

	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func expense(userID, amount, currency, date string) model.Expense {
	return model.Expense{
		UserID:   userID,
		Amount:   decimal.RequireFromString(amount),
		Category: "Food",
		Currency: currency,
		Country:  "India",
		Date:     day(date),
	}
}

func seed(t *testing.T, d *gorm.DB, rows ...model.Expense) {
	t.Helper()
	require.NoError(t, d.Create(&rows).Error)
}

func TestMailerMessage(t *testing.T) {
	m := NewMailer(MailConfig{Host: "smtp.example.com", Port: 587, Sender: "noreply@example.com", CodeTTL: 10 * time.Minute})

	msg := m.message("a@x.com", "123456")

	assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your password reset code"}, msg.GetHeader("Subject"))

	var body bytes.Buffer
	_, err := msg.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "123456")
	assert.Contains(t, body.String(), "10 minutes")
}

func TestMailerRefusesSender(t *testing.T) {
	m := NewMailer(MailConfig{Host: "127.0.0.1", Port: 1, Sender: "noreply@example.com"})

	assert.False(t, m.Send(context.Background(), "noreply@example.com", "123456"))
}

func TestMailerUnreachable(t *testing.T) {
	// Port 1 on loopback refuses connections
	m := NewMailer(MailConfig{Host: "127.0.0.1", Port: 1, Sender: "noreply@example.com"})

	assert.False(t, m.Send(context.Background(), "a@x.com", "123456"))
}

func TestPurgeCodes(t *testing.T) {
	d := newDB(t)
	store := reset.NewGormStore(d)
	now := time.Now().UTC()

	require.NoError(t, d.Create(&[]model.ResetCode{
		{Email: "old@x.com", Code: "111111", ExpiresAt: now.Add(-48 * time.Hour)},
		{Email: "recent@x.com", Code: "222222", ExpiresAt: now.Add(-time.Hour)},
		{Email: "live@x.com", Code: "333333", ExpiresAt: now.Add(time.Minute)},
	}).Error)

	PurgeCodes(context.Background(), store, 24*time.Hour)

	var left []string
	require.NoError(t, d.Model(&model.ResetCode{}).Order("email").Pluck("email", &left).Error)
	assert.Equal(t, []string{"live@x.com", "recent@x.com"}, left)
}

func TestCodeCleanupSchedule(t *testing.T) {
	store := reset.NewGormStore(newDB(t))

	_, err := CodeCleanup("not a schedule", time.Hour, store)
	assert.Error(t, err)

	c, err := CodeCleanup("@every 1h", time.Hour, store)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	<-c.Stop().Done()
}

func TestListExpenses(t *testing.T) {
	d := newDB(t)
	seed(t, d,
		expense("u1", "1.00", "INR", "2025-01-01"),
		expense("u1", "2.00", "INR", "2025-02-01"),
		expense("u1", "3.00", "INR", "2025-02-01"),
		expense("u2", "9.00", "INR", "2025-03-01"),
	)

	rows, err := ListExpenses(context.Background(), d, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Same date, newer id first
	assert.Equal(t, "3", rows[0].Amount.String())
	assert.Equal(t, "2", rows[1].Amount.String())
	assert.Equal(t, "1", rows[2].Amount.String())
}

func TestPeriodTotals(t *testing.T) {
	d := newDB(t)
	seed(t, d,
		expense("u1", "10.25", "INR", "2024-12-31"),
		expense("u1", "1.10", "INR", "2025-01-01"),
		expense("u1", "2.20", "INR", "2025-03-01"),
		expense("u1", "3.30", "INR", "2025-03-31"),
		expense("u1", "4.40", "INR", "2025-04-01"),
		expense("u2", "99.00", "INR", "2025-03-15"),
	)

	totals, err := PeriodTotals(context.Background(), d, "u1", time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "11.00", totals.Year.StringFixed(2))
	assert.Equal(t, "5.50", totals.Month.StringFixed(2))
}

func TestPeriodTotalsEmpty(t *testing.T) {
	totals, err := PeriodTotals(context.Background(), newDB(t), "nobody", time.Now())
	require.NoError(t, err)

	assert.True(t, totals.Year.IsZero())
	assert.True(t, totals.Month.IsZero())
}

func TestWriteCSV(t *testing.T) {
	rows := []model.Expense{expense("u1", "12.5", "INR", "2025-01-02")}
	rows[0].Description = "lunch, with \"friends\""

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, statementColumns, records[0])
	assert.Equal(t, []string{"2025-01-02", "India", "Food", "INR", "12.50", "lunch, with \"friends\""}, records[1])
}

func TestWritePDF(t *testing.T) {
	rows := []model.Expense{
		expense("u1", "12.5", "INR", "2025-01-02"),
		expense("u1", "3", "EUR", "2025-01-03"),
	}
	rows[0].Description = strings.Repeat("long description ", 10)

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, rows, "a@x.com", time.Now()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, nil, "a@x.com", time.Now()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTotalsByCurrency(t *testing.T) {
	codes, sums := totalsByCurrency([]model.Expense{
		expense("u1", "1.50", "USD", "2025-01-01"),
		expense("u1", "2.25", "EUR", "2025-01-01"),
		expense("u1", "1.00", "USD", "2025-01-01"),
	})

	assert.Equal(t, []string{"EUR", "USD"}, codes)
	assert.Equal(t, "2.50", sums["USD"].StringFixed(2))
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (f *fakeArchiver) Put(_ context.Context, key string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.keys = append(f.keys, key)
	return "s3://bucket/" + key, nil
}

func TestArchiveStatement(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	a := &fakeArchiver{}
	ArchiveStatement(context.Background(), a, "u1", "pdf", []byte("%PDF-"), at)
	assert.Equal(t, []string{"statements/u1/20250304T050607Z.pdf"}, a.keys)

	// Failures and a missing archiver are both silent
	ArchiveStatement(context.Background(), &fakeArchiver{err: errors.New("boom")}, "u1", "csv", nil, at)
	ArchiveStatement(context.Background(), nil, "u1", "csv", nil, at)
}
