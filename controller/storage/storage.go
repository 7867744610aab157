package storage

// Store is the persistence interface used by all subsystems. JSON helpers
// cover structured records; the byte accessors cover fixed-layout records
// whose on-disk encoding must stay stable across releases.
type Store interface {
	CreateBucket(bucket string) error
	Get(bucket, id string, obj interface{}) error
	Create(bucket string, fn func(id string) interface{}) error
	Update(bucket, id string, obj interface{}) error
	Delete(bucket, id string) error
	List(bucket string, fn func(id string, v []byte) error) error
	GetBytes(bucket, id string) ([]byte, error)
	PutBytes(bucket, id string, v []byte) error
	Close() error
}
