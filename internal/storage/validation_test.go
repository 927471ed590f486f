package storage

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/pace/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateUserYear(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		userID  string
		year    int
	}{
		{name: "valid", userID: "u1", year: 2025},
		{name: "lower bound", userID: "u1", year: 1900},
		{name: "upper bound", userID: "u1", year: 9999},
		{name: "empty user", userID: " ", year: 2025, wantErr: ErrEmptyString},
		{name: "year too small", userID: "u1", year: 1899, wantErr: ErrInvalidYear},
		{name: "year too large", userID: "u1", year: 10000, wantErr: ErrInvalidYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUserYear(tt.userID, tt.year)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateUserYear() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateUserYear() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	closed := model.Date(2025, time.May, 30)
	valid := func() *model.Transaction {
		return &model.Transaction{
			UserID:      "u1",
			Commission:  60,
			PendingDate: model.Date(2025, time.April, 21),
			Status:      model.StatusPending,
		}
	}

	tests := []struct {
		modify  func(*model.Transaction) *model.Transaction
		name    string
		wantErr bool
	}{
		{
			name:   "valid pending",
			modify: func(txn *model.Transaction) *model.Transaction { return txn },
		},
		{
			name: "valid closed",
			modify: func(txn *model.Transaction) *model.Transaction {
				txn.Status = model.StatusClosed
				txn.ClosedDate = &closed
				return txn
			},
		},
		{
			name:    "nil",
			modify:  func(*model.Transaction) *model.Transaction { return nil },
			wantErr: true,
		},
		{
			name: "infinite commission",
			modify: func(txn *model.Transaction) *model.Transaction {
				txn.Commission = math.Inf(1)
				return txn
			},
			wantErr: true,
		},
		{
			name: "NaN commission",
			modify: func(txn *model.Transaction) *model.Transaction {
				txn.Commission = math.NaN()
				return txn
			},
			wantErr: true,
		},
		{
			name: "closed without closed date",
			modify: func(txn *model.Transaction) *model.Transaction {
				txn.Status = model.StatusClosed
				return txn
			},
			wantErr: true,
		},
		{
			name: "empty status",
			modify: func(txn *model.Transaction) *model.Transaction {
				txn.Status = ""
				return txn
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTransaction(tt.modify(valid()))
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		field   *model.Field
		name    string
		wantErr bool
	}{
		{name: "goal", field: &model.Field{FieldName: "a", Kind: model.KindGoal}},
		{name: "tracker", field: &model.Field{FieldName: "calls", Kind: model.KindTracker}},
		{name: "lower-case condition", field: &model.Field{FieldName: "a", Kind: model.KindGoal, Condition: "round"}},
		{name: "nil", field: nil, wantErr: true},
		{name: "blank name", field: &model.Field{FieldName: "  ", Kind: model.KindGoal}, wantErr: true},
		{name: "missing kind", field: &model.Field{FieldName: "a"}, wantErr: true},
		{name: "bad condition", field: &model.Field{FieldName: "a", Kind: model.KindGoal, Condition: "HALF"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateField(tt.field)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateField() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.field != nil && !errors.Is(err, ErrInvalidField) {
				t.Errorf("validateField() error = %v, want ErrInvalidField", err)
			}
		})
	}
}
