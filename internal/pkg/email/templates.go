package email

// Email templates in HTML format

// BookingApprovedTemplate is sent when an admin approves a seat booking.
// The occupant follows the link to complete the full payment.
const BookingApprovedTemplate = `
<div class="card">
    <h2>Your seat booking was approved</h2>
    <p>Hi {{.Name}},</p>
    <p>Your booking at <strong>{{.LibraryName}}</strong> has been approved.
    Complete the payment within <strong>{{.PaymentWindow}}</strong> to confirm
    your seat — after that the approval expires and you will need to contact
    the library again.</p>
    <p><a class="button" href="{{.PaymentURL}}">Complete payment</a></p>
    <p class="muted">Booking reference: {{.BookingID}}</p>
</div>
`

// BookingRejectedTemplate is sent when an admin rejects a seat booking.
const BookingRejectedTemplate = `
<div class="card">
    <h2>Your seat booking was not approved</h2>
    <p>Hi {{.Name}},</p>
    <p>Unfortunately your booking at <strong>{{.LibraryName}}</strong> was not
    approved. The token amount is non-refundable. If you believe this is a
    mistake, please contact the library directly.</p>
    <p class="muted">Booking reference: {{.BookingID}}</p>
</div>
`

// AccountCredentialsTemplate is sent once after the booking is confirmed
// and the member account has been provisioned.
const AccountCredentialsTemplate = `
<div class="card">
    <h2>Welcome to {{.LibraryName}}</h2>
    <p>Hi {{.Name}},</p>
    <p>Your subscription is active. Sign in with:</p>
    <p>Email: <strong>{{.Email}}</strong><br>
    Password: <strong>{{.Password}}</strong></p>
    <p>Please change your password after your first sign-in.</p>
    {{if .SeatNumber}}<p>Your seat: <strong>{{.SeatNumber}}</strong></p>{{end}}
</div>
`
