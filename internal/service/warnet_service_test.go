package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

func TestWarnetDetail_FillsMissingSlots(t *testing.T) {
	f := newFixture()
	booking := uint64(55)
	f.st.pcs[pcKey{warnetA, 2}] = model.PC{ID: 1, WarnetID: warnetA, PCNumber: 2, Status: model.PCOccupied, CurrentBookingID: &booking}
	f.st.pcs[pcKey{warnetA, 9}] = model.PC{ID: 2, WarnetID: warnetA, PCNumber: 9, Status: model.PCMaintenance}
	f.st.rules[warnetA] = []model.WarnetRule{{ID: 1, WarnetID: warnetA, Rule: "Dilarang merokok"}}

	d, err := f.warnet.Detail(context.Background(), warnetA)
	require.NoError(t, err)
	require.Len(t, d.PCs, 10)
	assert.Equal(t, uint32(1), d.PCs[0].PCNumber)
	assert.Equal(t, model.PCAvailable, d.PCs[0].Status)
	assert.Equal(t, model.PCOccupied, d.PCs[1].Status)
	assert.Equal(t, model.PCMaintenance, d.PCs[8].Status)
	assert.Len(t, d.Rules, 1)
}

func TestWarnet_InactiveIsNotFound(t *testing.T) {
	f := newFixture()
	w := f.st.warnets[warnetB]
	w.IsActive = false
	f.st.warnets[warnetB] = w

	_, err := f.warnet.Detail(context.Background(), warnetB)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.warnet.Rules(context.Background(), warnetB)
	assert.ErrorIs(t, err, ErrNotFound)
}
