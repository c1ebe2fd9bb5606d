package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdaycuts/booking-api/internal/domain"
)

func TestSendDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/text", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostFormValue("phone"))
		assert.Equal(t, "hello", r.PostFormValue("message"))
		assert.Equal(t, "test-key", r.PostFormValue("key"))
		fmt.Fprint(w, `{"success": true, "textId": 98765}`)
	}))
	defer srv.Close()

	c := NewTextbeltClient("test-key", srv.URL).WithHTTPClient(srv.Client())
	res, err := c.Send(context.Background(), "+15551234567", "hello")
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Equal(t, "98765", res.TextID)
}

func TestSendChannelReportedFailure(t *testing.T) {
	// 200 response with success=false is a channel failure, not a transport
	// error; the caller must not retry automatically.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": false, "error": "Invalid phone number"}`)
	}))
	defer srv.Close()

	c := NewTextbeltClient("test-key", srv.URL).WithHTTPClient(srv.Client())
	res, err := c.Send(context.Background(), "bogus", "hello")
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.Equal(t, "Invalid phone number", res.Err)
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewTextbeltClient("test-key", srv.URL).WithHTTPClient(srv.Client())
	_, err := c.Send(context.Background(), "+15551234567", "hello")
	assert.Error(t, err)
}

func TestSendMissingKey(t *testing.T) {
	c := NewTextbeltClient("", "https://textbelt.com")
	_, err := c.Send(context.Background(), "+15551234567", "hello")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func testDraft() *domain.Draft {
	return &domain.Draft{
		Name:        "Alex",
		Phone:       "(555) 123-4567",
		Cut:         "Volume 1 Cut",
		Day:         "Saturday",
		Date:        "6/14",
		Time:        "12:00PM",
		IsHouseCall: true,
		Address:     "742 Evergreen Terrace, Provo, UT",
	}
}

func TestCustomerConfirmationTemplate(t *testing.T) {
	tpl := Templates{BusinessPhone: "+15559990000", BusinessAddress: "123 Shop St, Provo, UT"}
	msg := tpl.CustomerConfirmation(testDraft(), "QWXYZ")

	assert.Contains(t, msg, "Hey Alex!")
	assert.Contains(t, msg, "Volume 1 Cut")
	assert.Contains(t, msg, "Saturday 6/14 at 12:00PM")
	assert.Contains(t, msg, "Confirmation Code: QWXYZ")
	assert.Contains(t, msg, "742 Evergreen Terrace", "house calls show the customer address")
	assert.Contains(t, msg, "+15559990000")
}

func TestCustomerConfirmationAtLocation(t *testing.T) {
	tpl := Templates{BusinessPhone: "+15559990000", BusinessAddress: "123 Shop St, Provo, UT"}
	d := testDraft()
	d.IsHouseCall = false
	d.Address = ""

	msg := tpl.CustomerConfirmation(d, "QWXYZ")
	assert.Contains(t, msg, "123 Shop St", "shop bookings show the business address")
}

func TestBusinessNotificationTemplate(t *testing.T) {
	tpl := Templates{BusinessPhone: "+15559990000", BusinessAddress: "123 Shop St, Provo, UT"}
	at := time.Date(2025, time.June, 10, 14, 30, 0, 0, time.Local)
	msg := tpl.BusinessNotification(testDraft(), at)

	assert.Contains(t, msg, "NEW APPOINTMENT BOOKING")
	assert.Contains(t, msg, "- Customer: Alex")
	assert.Contains(t, msg, "- Phone: (555) 123-4567")
	assert.Contains(t, msg, "- Date: Saturday 6/14")
	assert.Contains(t, msg, "- Time: 12:00PM")
	assert.Contains(t, msg, "Booked at: 6/10/2025")
}
