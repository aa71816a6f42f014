package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{NewAppError("INVALID_YES_NO", "Please answer with Yes or No.", ErrInvalidYesNo), codes.InvalidArgument},
		{fmt.Errorf("select: %w", ErrUnsupportedCountry), codes.InvalidArgument},
		{ErrSessionNotFound, codes.NotFound},
		{ErrQuestionRequired, codes.FailedPrecondition},
		{ErrNoMoreQuestions, codes.FailedPrecondition},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		st, ok := status.FromError(GRPCStatus(tc.err))
		assert.True(t, ok)
		assert.Equal(t, tc.code, st.Code(), tc.err.Error())
	}
	assert.NoError(t, GRPCStatus(nil))
}

func TestUserMessagePrefersAppErrorMessage(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewAppError("INVALID_DATE", "Please provide date in YYYY-MM-DD format.", ErrInvalidDate))
	assert.Equal(t, "Please provide date in YYYY-MM-DD format.", UserMessage(err))
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
