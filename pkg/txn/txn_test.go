package txn

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"bloodlink/pkg/apperrors"
)

func TestTranslateSerializationFailure(t *testing.T) {
	err := Translate(&pq.Error{Code: "40001"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestTranslateDeadlock(t *testing.T) {
	err := Translate(&pq.Error{Code: "40P01"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestTranslateUniqueViolation(t *testing.T) {
	err := Translate(&pq.Error{Code: "23505"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestTranslateNoRows(t *testing.T) {
	err := Translate(sql.ErrNoRows)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestTranslateKeepsCodedErrors(t *testing.T) {
	coded := apperrors.New(apperrors.CodeEligibility, "must wait 12 more days")
	translated := Translate(coded)
	assert.ErrorIs(t, translated, coded)
	assert.Equal(t, apperrors.CodeEligibility, apperrors.CodeOf(translated))
}

func TestTranslateWrapsUnknown(t *testing.T) {
	err := Translate(errors.New("connection reset"))
	assert.Equal(t, apperrors.CodePersistence, apperrors.CodeOf(err))
	assert.Equal(t, "storage failure", apperrors.MessageOf(err))
}
