package controller

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/evancroft/phkeeper/controller/storage"
)

const errorBucket = "errors"

// Subsystem is the lifecycle contract every module implements.
type Subsystem interface {
	Setup() error
	Start()
	Stop()
	LoadAPI(r *mux.Router)
}

// Controller exposes shared services to subsystems.
type Controller interface {
	Store() storage.Store
	LogError(subsystem, msg string) error
	DevMode() bool
}

type controller struct {
	store   storage.Store
	devMode bool
}

func New(store storage.Store, devMode bool) (Controller, error) {
	if err := store.CreateBucket(errorBucket); err != nil {
		return nil, err
	}
	return &controller{store: store, devMode: devMode}, nil
}

func (c *controller) Store() storage.Store { return c.store }
func (c *controller) DevMode() bool        { return c.devMode }

// LogError records the error durably and mirrors it to the log stream.
func (c *controller) LogError(subsystem, msg string) error {
	logrus.WithField("subsystem", subsystem).Error(msg)
	type record struct {
		ID        string `json:"id"`
		Subsystem string `json:"subsystem"`
		Message   string `json:"message"`
		Ts        int64  `json:"ts"`
	}
	rec := record{Subsystem: subsystem, Message: msg, Ts: time.Now().Unix()}
	return c.store.Create(errorBucket, func(id string) interface{} {
		rec.ID = id
		return &rec
	})
}
