package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	b := New()

	var got1, got2 []Event
	b.Subscribe(func(ev Event) { got1 = append(got1, ev) })
	b.Subscribe(func(ev Event) { got2 = append(got2, ev) })

	b.PublishRecord(TableProfiles, "p1", nil, "new")
	b.PublishKeyChange()

	assert.Len(t, got1, 2)
	assert.Len(t, got2, 2)

	assert.Equal(t, KindRecord, got1[0].Kind)
	assert.Equal(t, TableProfiles, got1[0].Table)
	assert.Equal(t, "p1", got1[0].Key)
	assert.Nil(t, got1[0].Old)
	assert.Equal(t, "new", got1[0].New)

	assert.Equal(t, KindKey, got1[1].Kind)
}

func TestBus_NoSubscribers(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() { b.PublishRecord(TableRules, "r1", "old", nil) })
}
