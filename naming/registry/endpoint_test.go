//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint(t *testing.T) {
	e := Endpoint{Host: "10.0.0.1", Port: 8080, AssignedGroup: 1, DeclaredGroup: 2, Weight: 100}
	assert.Equal(t, "10.0.0.1:8080", e.Address())
	assert.Equal(t, "tcp://10.0.0.1:8080", e.Key())
	e.Transport = TransportUDP
	assert.Equal(t, "udp://10.0.0.1:8080", e.Key())
	assert.Contains(t, e.String(), "group:1/2")

	assert.Nil(t, Clone(nil))
	eps := []Endpoint{e}
	c := Clone(eps)
	c[0].Load = 9
	assert.Zero(t, eps[0].Load)
}

func TestParseSetDescriptor(t *testing.T) {
	tests := []struct {
		in      string
		want    SetDescriptor
		wantErr bool
	}{
		{in: "app", want: SetDescriptor{Name: "app"}},
		{in: "app.sz", want: SetDescriptor{Name: "app", Area: "sz"}},
		{in: "app.sz.1", want: SetDescriptor{Name: "app", Area: "sz", Group: "1"}},
		{in: "app.*.*", want: SetDescriptor{Name: "app", Area: "*", Group: "*"}},
		{in: "", wantErr: true},
		{in: "*.sz.1", wantErr: true},
		{in: "app..1", wantErr: true},
		{in: "a.b.c.d", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSetDescriptor(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSet)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
	d := SetDescriptor{Name: "app", Group: "1"}
	assert.Equal(t, "app.*.1", d.String())
	assert.True(t, d.AnyArea())
	assert.False(t, d.AnyGroup())
}
