package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFireInRegistrationOrder(t *testing.T) {
	e := NewEmitter[int]()

	var got []string
	e.Subscribe(func(v int) { got = append(got, "first") })
	e.Subscribe(func(v int) { got = append(got, "second") })
	e.Subscribe(func(v int) { got = append(got, "third") })

	e.Fire(1)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestUnsubscribe(t *testing.T) {
	e := NewEmitter[string]()

	var calls int
	unsubscribe := e.Subscribe(func(string) { calls++ })

	e.Fire("a")
	unsubscribe()
	unsubscribe()
	e.Fire("b")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, e.Len())
}

func TestUnsubscribeDuringFire(t *testing.T) {
	e := NewEmitter[int]()

	var seen []int
	var unsubscribe func()
	unsubscribe = e.Subscribe(func(v int) {
		seen = append(seen, v)
		unsubscribe()
	})

	e.Fire(1)
	e.Fire(2)

	assert.Equal(t, []int{1}, seen)
}

func TestDispose(t *testing.T) {
	e := NewEmitter[int]()

	var calls int
	e.Subscribe(func(int) { calls++ })
	e.Dispose()

	e.Fire(1)
	e.Subscribe(func(int) { calls++ })
	e.Fire(2)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, e.Len())
}
