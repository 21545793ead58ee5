package mysql

const bookingColumns = `
id, booking_reference, user_id, hotel_id, guest_name, guest_email, guest_phone,
check_in, check_out, guests, rooms, room_type, price_per_night, total_nights, total_amount,
COALESCE(special_requests, ''), payment_method, payment_status, payment_ref, manual_settlement,
status, created_at, updated_at`

const (
	getBookingSQL       = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	lockBookingSQL      = getBookingSQL + ` FOR UPDATE`
	getBookingByRefSQL  = `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = ?`
	listBookingsBaseSQL = `SELECT ` + bookingColumns + ` FROM bookings b`

	insertBookingSQL = `
INSERT INTO bookings (
  booking_reference, user_id, hotel_id, guest_name, guest_email, guest_phone,
  check_in, check_out, guests, rooms, room_type, price_per_night, total_nights, total_amount,
  special_requests, payment_method, payment_status, payment_ref, manual_settlement,
  status, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	updateBookingSQL = `
UPDATE bookings SET
  guest_name = ?, guest_email = ?, guest_phone = ?, guests = ?, special_requests = ?,
  payment_status = ?, payment_ref = ?, manual_settlement = ?, status = ?, updated_at = ?
WHERE id = ?`

	deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

	bookingStatsSQL = `SELECT status, COUNT(*) FROM bookings GROUP BY status`

	countOverlappingSQL = `
SELECT COUNT(*) FROM bookings
WHERE hotel_id = ? AND status <> 'CANCELLED' AND check_in <= ? AND check_out >= ?`

	overduePendingSQL    = `SELECT id FROM bookings WHERE status = 'PENDING' AND check_in < ? ORDER BY id`
	finishedConfirmedSQL = `SELECT id FROM bookings WHERE status = 'CONFIRMED' AND check_out < ? ORDER BY id`
)

// Inventory: the conditional decrement is the serialization point; InnoDB
// row-locks the (hotel_id, room_type) row for the rest of the transaction.
const (
	reserveRoomSQL = `UPDATE rooms SET room_count = room_count - 1 WHERE hotel_id = ? AND room_type = ? AND room_count > 0`
	roomExistsSQL  = `SELECT COUNT(*) FROM rooms WHERE hotel_id = ? AND room_type = ?`
	releaseRoomSQL = `UPDATE rooms SET room_count = room_count + 1 WHERE hotel_id = ? AND room_type = ?`
)

const (
	walletColumns       = `id, owner_type, owner_id, balance, updated_at`
	findWalletSQL       = `SELECT ` + walletColumns + ` FROM wallets WHERE owner_type = ? AND owner_key = ?`
	lockWalletSQL       = `SELECT ` + walletColumns + ` FROM wallets WHERE id = ? FOR UPDATE`
	insertWalletSQL     = `INSERT INTO wallets (owner_type, owner_id, balance) VALUES (?, ?, 0)`
	setWalletBalanceSQL = `UPDATE wallets SET balance = ? WHERE id = ?`

	insertWalletTxSQL = `
INSERT INTO wallet_transactions (from_wallet_id, to_wallet_id, booking_id, amount, transaction_type, description, created_at)
VALUES (?,?,?,?,?,?,?)`

	listWalletTxSQL = `
SELECT id, from_wallet_id, to_wallet_id, booking_id, amount, transaction_type, description, created_at
FROM wallet_transactions
WHERE from_wallet_id = ? OR to_wallet_id = ?
ORDER BY id DESC
LIMIT ?`
)

const (
	getHotelSQL = `SELECT id, name, address, city, country, price_per_night, host_id FROM hotels WHERE id = ?`
	getUserSQL  = `SELECT id, name, email, email_verified FROM users WHERE id = ?`
	getHostSQL  = `SELECT id, owner_name, email FROM hosts WHERE id = ?`
)
