package library

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Book is one physical copy in the catalog. Many copies may share an ISBN;
// BookCode is the human-assigned identity printed on the copy.
type Book struct {
	ID        int64           `json:"id"`
	BookCode  string          `json:"book_code" validate:"required,max=50"`
	ISBN      string          `json:"isbn" validate:"required,max=32"`
	Title     string          `json:"title" validate:"required,max=255"`
	Author    string          `json:"author" validate:"required,max=255"`
	Subject   string          `json:"subject" validate:"required,max=100"`
	Grade     string          `json:"grade" validate:"required,max=20"`
	Price     decimal.Decimal `json:"price"`
	Status    BookStatus      `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (b *Book) IsAvailable() bool { return b.Status == BookAvailable }

// Learner is a registered student. Borrowing eligibility is derived from
// their transactions, not stored here.
type Learner struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,max=100"`
	Surname     string    `json:"surname" validate:"required,max=100"`
	Grade       string    `json:"grade" validate:"required,max=20"`
	DateOfBirth time.Time `json:"date_of_birth"`
	ContactNo   string    `json:"contact_no" validate:"omitempty,max=30"`
	CreatedAt   time.Time `json:"created_at"`
}

func (l *Learner) FullName() string { return l.Name + " " + l.Surname }

// InitialSurname formats the learner as "J. Smith". Empty if either part is missing.
func (l *Learner) InitialSurname() string {
	if l.Name == "" || l.Surname == "" {
		return ""
	}
	first := []rune(l.Name)[0]
	return string(unicode.ToUpper(first)) + ". " + l.Surname
}

// Age returns completed years at the given day.
func (l *Learner) Age(today time.Time) int {
	if l.DateOfBirth.IsZero() {
		return 0
	}
	age := today.Year() - l.DateOfBirth.Year()
	if today.Month() < l.DateOfBirth.Month() ||
		(today.Month() == l.DateOfBirth.Month() && today.Day() < l.DateOfBirth.Day()) {
		age--
	}
	return age
}

// Transaction is one loan of one book to one learner.
type Transaction struct {
	ID         int64             `json:"id"`
	LearnerID  int64             `json:"learner_id"`
	BookID     int64             `json:"book_id"`
	BorrowDate time.Time         `json:"borrow_date"`
	DueDate    time.Time         `json:"due_date"`
	ReturnDate *time.Time        `json:"return_date,omitempty"`
	Status     TransactionStatus `json:"status"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsOverdue is true for an active loan whose due date lies before today.
func (t *Transaction) IsOverdue(today time.Time) bool {
	return t.Status == TxActive && t.DueDate.Before(DateOf(today))
}

// DaysOverdue is the number of whole days past the due date, or 0.
func (t *Transaction) DaysOverdue(today time.Time) int {
	if !t.IsOverdue(today) {
		return 0
	}
	return DaysBetween(t.DueDate, today)
}

// Payment is a settlement receipt for one learner.
type Payment struct {
	ID          int64           `json:"id"`
	ReceiptNo   string          `json:"receipt_no"`
	LearnerID   int64           `json:"learner_id"`
	Amount      decimal.Decimal `json:"amount"`
	ProcessedBy int64           `json:"processed_by"`
	PaymentDate time.Time       `json:"payment_date"`
	Notes       string          `json:"notes,omitempty"`
}

// PaymentItem records the amount charged for one settled transaction.
// Amount is the book price at settlement time, not a live reference.
type PaymentItem struct {
	ID            int64           `json:"id"`
	PaymentID     int64           `json:"payment_id"`
	TransactionID int64           `json:"transaction_id"`
	BookID        int64           `json:"book_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// User is a staff account.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username" validate:"required,min=3,max=100,username"`
	PasswordHash       string     `json:"-"`
	Name               string     `json:"name" validate:"required,max=100"`
	Surname            string     `json:"surname" validate:"required,max=100"`
	Email              string     `json:"email" validate:"required,email"`
	ContactNo          string     `json:"contact_no" validate:"omitempty,max=30"`
	SchoolName         string     `json:"school_name" validate:"omitempty,max=255"`
	Role               Role       `json:"role"`
	SecurityQuestion   string     `json:"security_question" validate:"required"`
	SecurityAnswerHash string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	PasswordChangedAt  *time.Time `json:"password_changed_at,omitempty"`
}

func (u *User) FullName() string { return strings.TrimSpace(u.Name + " " + u.Surname) }

// ActivityLog is an audit line for a staff action.
type ActivityLog struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ActionType    string    `json:"action_type"`
	ActionDetails string    `json:"action_details"`
	CreatedAt     time.Time `json:"created_at"`
}

// DashboardStats summarises the library at a glance.
type DashboardStats struct {
	TotalBooks     int `json:"total_books"`
	AvailableBooks int `json:"available_books"`
	BorrowedBooks  int `json:"borrowed_books"`
	LostBooks      int `json:"lost_books"`
	TotalLearners  int `json:"total_learners"`
	ActiveLearners int `json:"active_learners"`
	TotalUsers     int `json:"total_users"`
	OverdueBooks   int `json:"overdue_books"`
}
