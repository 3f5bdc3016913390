package seqid

import (
	"encoding/json"
	"math"
	"testing"
)

// testID is a sample ID for testing
var testID = ID(1234567890123456789)

func TestIDSQL(t *testing.T) {
	t.Run("Value", testIDSQLValue)
	t.Run("ValueOverflow", testIDSQLValueOverflow)
	t.Run("Scan", func(t *testing.T) {
		t.Run("Int64", testIDSQLScanInt64)
		t.Run("NegativeInt64", testIDSQLScanNegative)
		t.Run("String", testIDSQLScanString)
		t.Run("Bytes", testIDSQLScanBytes)
		t.Run("ID", testIDSQLScanID)
		t.Run("Unsupported", testIDSQLScanUnsupported)
		t.Run("Nil", testIDSQLScanNil)
	})
}

func testIDSQLValue(t *testing.T) {
	v, err := testID.Value()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(int64)
	if !ok {
		t.Fatalf("Value() returned %T, want int64", v)
	}
	if want := testID.Int64(); got != want {
		t.Errorf("Value() == %d, want %d", got, want)
	}
}

func testIDSQLValueOverflow(t *testing.T) {
	id := ID(uint64(math.MaxInt64) + 1)
	if v, err := id.Value(); err == nil {
		t.Errorf("Value() of %d = %v, want error", uint64(id), v)
	}
}

func testIDSQLScanInt64(t *testing.T) {
	var got ID
	if err := got.Scan(testID.Int64()); err != nil {
		t.Fatal(err)
	}
	if got != testID {
		t.Errorf("Scan(%d): got %v, want %v", testID.Int64(), got, testID)
	}
}

func testIDSQLScanNegative(t *testing.T) {
	var got ID
	if err := got.Scan(int64(-1)); err == nil {
		t.Errorf("Scan(-1) succeeded, got %v", got)
	}
}

func testIDSQLScanString(t *testing.T) {
	s := testID.String()
	var got ID
	if err := got.Scan(s); err != nil {
		t.Fatal(err)
	}
	if got != testID {
		t.Errorf("Scan(%q): got %v, want %v", s, got, testID)
	}
}

func testIDSQLScanBytes(t *testing.T) {
	s := testID.String()
	var got ID
	if err := got.Scan([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if got != testID {
		t.Errorf("Scan(%q): got %v, want %v", s, got, testID)
	}
}

func testIDSQLScanID(t *testing.T) {
	var got ID
	if err := got.Scan(testID); err != nil {
		t.Fatal(err)
	}
	if got != testID {
		t.Errorf("Scan(ID): got %v, want %v", got, testID)
	}
}

func testIDSQLScanUnsupported(t *testing.T) {
	for _, v := range []interface{}{true, 42.5} {
		var got ID
		if err := got.Scan(v); err == nil {
			t.Errorf("Scan(%T) succeeded, got %v", v, got)
		}
	}
}

func testIDSQLScanNil(t *testing.T) {
	got := testID
	if err := got.Scan(nil); err != nil || !got.IsNil() {
		t.Errorf("Scan(nil) failed, got %v", got)
	}
}

func TestNullID(t *testing.T) {
	t.Run("Value", func(t *testing.T) {
		t.Run("Null", testNullIDValueNull)
		t.Run("Valid", testNullIDValueValid)
	})
	t.Run("Scan", func(t *testing.T) {
		t.Run("Nil", testNullIDScanNil)
		t.Run("Valid", testNullIDScanValid)
		t.Run("Invalid", testNullIDScanInvalid)
	})
	t.Run("JSON", func(t *testing.T) {
		t.Run("MarshalNull", testNullIDMarshalJSONNull)
		t.Run("MarshalValid", testNullIDMarshalJSONValid)
		t.Run("UnmarshalNull", testNullIDUnmarshalJSONNull)
		t.Run("UnmarshalValid", testNullIDUnmarshalJSONValid)
		t.Run("UnmarshalMalformed", testNullIDUnmarshalJSONMalformed)
	})
	t.Run("Text", testNullIDText)
}

func testNullIDValueNull(t *testing.T) {
	got, err := NullID{}.Value()
	if got != nil || err != nil {
		t.Errorf("null NullID.Value() = %v, %v; want nil, nil", got, err)
	}
}

func testNullIDValueValid(t *testing.T) {
	got, err := NullIDFrom(testID).Value()
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := got.(int64); !ok || i != testID.Int64() {
		t.Errorf("Value() = %v (%T), want %d", got, got, testID.Int64())
	}
}

func testNullIDScanNil(t *testing.T) {
	n := NullIDFrom(testID)
	if err := n.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if n.Valid || n.ID != Nil {
		t.Errorf("after Scan(nil): %+v, want zero NullID", n)
	}
}

func testNullIDScanValid(t *testing.T) {
	var n NullID
	if err := n.Scan(testID.Int64()); err != nil {
		t.Fatal(err)
	}
	if !n.Valid || n.ID != testID {
		t.Errorf("after Scan(%d): %+v", testID.Int64(), n)
	}
}

func testNullIDScanInvalid(t *testing.T) {
	var n NullID
	if err := n.Scan(42.5); err == nil {
		t.Fatal("Scan(42.5) succeeded")
	}
	if n.Valid {
		t.Error("NullID is valid after failed Scan")
	}
}

func testNullIDMarshalJSONNull(t *testing.T) {
	data, err := json.Marshal(NullID{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("json.Marshal(NullID{}) = %s, want null", data)
	}
}

func testNullIDMarshalJSONValid(t *testing.T) {
	data, err := json.Marshal(NullIDFrom(testID))
	if err != nil {
		t.Fatal(err)
	}
	if want := `"` + testID.String() + `"`; string(data) != want {
		t.Errorf("json.Marshal = %s, want %s", data, want)
	}
}

func testNullIDUnmarshalJSONNull(t *testing.T) {
	n := NullIDFrom(testID)
	if err := json.Unmarshal([]byte(`null`), &n); err != nil {
		t.Fatal(err)
	}
	if n.Valid || n.ID != Nil {
		t.Errorf("after unmarshal null: %+v", n)
	}
}

func testNullIDUnmarshalJSONValid(t *testing.T) {
	for _, data := range []string{`"1234567890123456789"`, `1234567890123456789`} {
		var n NullID
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			t.Fatalf("json.Unmarshal(%s): %v", data, err)
		}
		if !n.Valid || n.ID != testID {
			t.Errorf("json.Unmarshal(%s) = %+v", data, n)
		}
	}
}

func testNullIDUnmarshalJSONMalformed(t *testing.T) {
	var n NullID
	if err := json.Unmarshal([]byte(`{"foo": "bar"}`), &n); err == nil {
		t.Fatal("json.Unmarshal err = <nil>, want error")
	}
}

func testNullIDText(t *testing.T) {
	text, err := NullID{}.MarshalText()
	if err != nil || len(text) != 0 {
		t.Errorf("MarshalText of null = %q, %v", text, err)
	}

	text, err = NullIDFrom(testID).MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var n NullID
	if err := n.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if !n.Valid || n.ID != testID {
		t.Errorf("text roundtrip = %+v, want %v", n, testID)
	}
	if err := n.UnmarshalText(nil); err != nil || n.Valid {
		t.Errorf("UnmarshalText(nil) = %+v, %v", n, err)
	}
}
