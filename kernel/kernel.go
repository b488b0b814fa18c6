package kernel

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tally/boundary"
)

// Kernel is a native compute service: a ZeroMQ REP socket speaking the
// boundary codec. Requests are two frames, [op, payload]; replies are
// [status, payload] where status is "ok" or "error".
type Kernel struct {
	sock     zmq4.Socket
	log      *logrus.Logger
	session  string
	shutdown chan struct{}
}

func New() *Kernel {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Kernel{
		log:      log,
		session:  uuid.NewString(),
		shutdown: make(chan struct{}),
	}
}

var ops = map[string]func([]byte) ([]byte, error){
	"compile_many":     boundary.CompileMany,
	"eval_many":        boundary.EvalMany,
	"apply_range":      boundary.ApplyRange,
	"validate_formula": boundary.ValidateFormula,
}

// Start binds addr and serves requests until Stop is called.
func (k *Kernel) Start(addr string) error {
	k.sock = zmq4.NewRep(context.Background())
	if err := k.sock.Listen(addr); err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	defer k.sock.Close()

	log := k.log.WithField("session", k.session)
	log.WithField("addr", addr).Info("kernel listening")

	for {
		select {
		case <-k.shutdown:
			return nil
		default:
		}

		msg, err := k.sock.Recv()
		if err != nil {
			select {
			case <-k.shutdown:
				return nil
			default:
			}
			log.WithError(err).Warn("receive failed")
			continue
		}

		reply := k.dispatch(msg)
		if err := k.sock.Send(reply); err != nil {
			log.WithError(err).Warn("send failed")
		}
	}
}

// Stop asks the serve loop to exit.
func (k *Kernel) Stop() {
	close(k.shutdown)
	if k.sock != nil {
		k.sock.Close()
	}
}

func (k *Kernel) dispatch(msg zmq4.Msg) zmq4.Msg {
	if len(msg.Frames) != 2 {
		return errorReply(fmt.Sprintf("expected 2 frames, got %d", len(msg.Frames)))
	}
	op := string(msg.Frames[0])
	fn, ok := ops[op]
	if !ok {
		return errorReply("unknown operation: " + op)
	}

	out, err := fn(msg.Frames[1])
	if err != nil {
		k.log.WithFields(logrus.Fields{"session": k.session, "op": op}).
			WithError(err).Info("request failed")
		return errorReply(err.Error())
	}
	return zmq4.NewMsgFrom([]byte("ok"), out)
}

func errorReply(msg string) zmq4.Msg {
	return zmq4.NewMsgFrom([]byte("error"), []byte(msg))
}
