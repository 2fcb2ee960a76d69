package oto_test

import (
	"reflect"
	"testing"

	"github.com/beatpad/beatpad/oto"
)

func TestFloatBufferTo16BitLE(t *testing.T) {
	tmp := make([]byte, 0, 2)
	got := oto.FloatBufferTo16BitLE([]float32{0, 1, -1, 2, -2, 0.5}, tmp[:0])
	expected := []byte{0, 0, 0xff, 0x7f, 0x01, 0x80, 0xff, 0x7f, 0x01, 0x80, 0xff, 0x3f}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
}
