// Package dbtest opens throwaway sqlite databases carrying the marketplace
// schema for repository and service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const schema = `
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  image_url TEXT NOT NULL,
  category TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME
);
CREATE TABLE addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  address_type TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT,
  landmark TEXT,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE vendors (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  merchant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  rating INTEGER NOT NULL,
  is_active INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE ads (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  price_per_product TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  is_active INTEGER NOT NULL,
  categories TEXT NOT NULL,
  offer_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE offers (
  id TEXT PRIMARY KEY,
  ad_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  price_per_product TEXT NOT NULL,
  dispatch_day INTEGER NOT NULL,
  remark TEXT NOT NULL,
  locked_at DATETIME,
  created_at DATETIME,
  UNIQUE (ad_id, vendor_id)
);
CREATE TABLE vendor_ad_decisions (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  ad_id TEXT NOT NULL,
  decision TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (vendor_id, ad_id)
);
CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  overall_price TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  ad_id TEXT NOT NULL,
  offer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price_per_product TEXT NOT NULL,
  total_price TEXT NOT NULL,
  dispatch_day INTEGER NOT NULL,
  remark TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (cart_id, offer_id),
  FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE,
  FOREIGN KEY (offer_id) REFERENCES offers(id) ON DELETE RESTRICT
);
CREATE TABLE checkout_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  cart_id TEXT,
  receipt TEXT NOT NULL UNIQUE,
  payment_intent_id TEXT,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL,
  snapshot TEXT NOT NULL,
  order_ids TEXT NOT NULL DEFAULT '{}',
  last_error TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  ad_id TEXT NOT NULL,
  offer_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  checkout_attempt_id TEXT NOT NULL,
  payment_intent_id TEXT NOT NULL,
  receipt TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  fulfillment_status TEXT NOT NULL,
  product_snapshot TEXT NOT NULL,
  vendor_snapshot TEXT NOT NULL,
  address_snapshot TEXT NOT NULL,
  price_per_product TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  total_amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  dispatch_day INTEGER NOT NULL,
  remark TEXT NOT NULL,
  payment_id TEXT,
  payment_signature TEXT,
  refund_id TEXT,
  paid_at DATETIME,
  cancelled_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (payment_intent_id, offer_id)
);
CREATE UNIQUE INDEX idx_orders_payment_offer
  ON orders (payment_id, offer_id)
  WHERE payment_id IS NOT NULL AND payment_status <> 'failed';
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);
CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);
`

// Open returns an isolated in-memory database with every table created and
// foreign keys enforced on each pooled connection.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	sqlDB, err := conn.DB()
	if err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return conn
}
