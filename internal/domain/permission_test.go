package domain

import "testing"

func TestPermValueAtLeast(t *testing.T) {
	cases := []struct {
		v, min PermValue
		want   bool
	}{
		{PermNo, PermNo, true},
		{PermNo, PermQueryBuilder, false},
		{PermQueryBuilder, PermNo, true},
		{PermQueryBuilder, PermQueryBuilderAndNative, false},
		{PermQueryBuilderAndNative, PermQueryBuilder, true},
		{PermQueryBuilderAndNative, PermQueryBuilderAndNative, true},
		{PermBlocked, PermNo, false},
		{PermBlocked, PermQueryBuilderAndNative, false},
	}
	for _, c := range cases {
		if got := c.v.AtLeast(c.min); got != c.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", c.v, c.min, got, c.want)
		}
	}
}

func TestPermValueValid(t *testing.T) {
	for _, v := range []PermValue{PermNo, PermQueryBuilder, PermQueryBuilderAndNative, PermBlocked} {
		if !v.Valid() {
			t.Errorf("%s should be valid", v)
		}
	}
	if PermValue("full-access").Valid() {
		t.Error("unknown value should not be valid")
	}
}

func TestPermissionEntryValidate(t *testing.T) {
	ok := []PermissionEntry{
		{Principal: "a", Scope: ScopeDatabase, Value: PermQueryBuilder},
		{Principal: "a", Scope: ScopeSchema, SchemaName: "public", Value: PermNo},
		{Principal: "a", Scope: ScopeTable, TableID: 7, Value: PermBlocked},
	}
	for _, e := range ok {
		if err := e.Validate(); err != nil {
			t.Errorf("entry %+v should validate, got %v", e, err)
		}
	}

	bad := []PermissionEntry{
		{Principal: "a", Scope: ScopeDatabase, Value: "superuser"},
		{Principal: "a", Scope: ScopeDatabase, SchemaName: "public", Value: PermNo},
		{Principal: "a", Scope: ScopeDatabase, TableID: 1, Value: PermNo},
		{Principal: "a", Scope: ScopeSchema, Value: PermNo},
		{Principal: "a", Scope: ScopeSchema, SchemaName: "public", TableID: 1, Value: PermNo},
		{Principal: "a", Scope: ScopeTable, Value: PermNo},
		{Principal: "a", Scope: "column", Value: PermNo},
	}
	for _, e := range bad {
		err := e.Validate()
		if err == nil {
			t.Errorf("entry %+v should fail validation", e)
			continue
		}
		if _, isMalformed := err.(*MalformedPermissionEntryError); !isMalformed {
			t.Errorf("entry %+v: want MalformedPermissionEntryError, got %T", e, err)
		}
	}
}
