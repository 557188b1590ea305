package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rarays/backend/internal/beam"
	"rarays/backend/internal/game"
	"rarays/backend/internal/world"
)

const (
	DefaultViewerRadius = 0.6  // Радиус сферы зрителя в мире
	EyeHeight           = 1.62 // Высота глаза над поверхностью
)

// BeamService создает лучи и отдает текущее состояние
type BeamService interface {
	Fire(viewer beam.Viewer) (game.BeamSnapshot, bool, error)
	WithSnapshots(fn func(snapshots []game.BeamSnapshot))
}

// ViewerWorld объекты зрителей в мире
type ViewerWorld interface {
	AddObject(obj *world.Object)
	UpdateObjectPosition(id string, position mgl64.Vec3) error
	RemoveObject(id string)
	SurfacePoint(x, z float64) (mgl64.Vec3, error)
}

// viewerConn состояние подключенного зрителя
type viewerConn struct {
	id   string
	conn *SafeWriter
	ws   *websocket.Conn // Чтение идет только из HandleWS

	mu  sync.Mutex
	eye mgl64.Vec3
}

func (vc *viewerConn) Eye() mgl64.Vec3 {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.eye
}

func (vc *viewerConn) setEye(eye mgl64.Vec3) {
	vc.mu.Lock()
	vc.eye = eye
	vc.mu.Unlock()
}

// Server WebSocket сервер лучей. Реализует game.BeamBroadcaster.
type Server struct {
	upgrader websocket.Upgrader
	beams    BeamService
	world    ViewerWorld

	viewers   map[string]*viewerConn
	viewersMu sync.RWMutex
	nextID    uint64

	logger zerolog.Logger
}

// NewServer создает новый экземпляр WebSocket сервера
func NewServer(beams BeamService, viewerWorld ViewerWorld, logger zerolog.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		beams:   beams,
		world:   viewerWorld,
		viewers: make(map[string]*viewerConn),
		logger:  logger.With().Str("component", "WSServer").Logger(),
	}
}

// HandleWS обрабатывает входящие WebSocket соединения
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	viewer := s.newViewer(conn)
	defer s.removeViewer(viewer)

	log := s.logger.With().Str("viewer", viewer.id).Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("viewer connected")

	if err := s.join(viewer); err != nil {
		log.Warn().Err(err).Msg("welcome failed")
		return
	}

	for {
		_, data, err := viewer.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("read failed")
			}
			log.Info().Msg("viewer disconnected")
			return
		}

		if err := s.handleMessage(viewer, data); err != nil {
			log.Debug().Err(err).Msg("message rejected")
			if werr := viewer.conn.WriteJSON(NewErrorMessage(err)); werr != nil {
				return
			}
		}
	}
}

func (s *Server) newViewer(conn *websocket.Conn) *viewerConn {
	eye, err := s.world.SurfacePoint(0, 0)
	if err != nil {
		eye = mgl64.Vec3{0, beam.MinHeight, 0}
	}
	eye = eye.Add(mgl64.Vec3{0, EyeHeight, 0})

	s.viewersMu.Lock()
	s.nextID++
	id := fmt.Sprintf("viewer_%d", s.nextID)
	s.viewersMu.Unlock()

	viewer := &viewerConn{id: id, conn: NewSafeWriter(conn), ws: conn, eye: eye}
	s.world.AddObject(&world.Object{ID: viewer.id, Position: eye, Radius: DefaultViewerRadius})
	return viewer
}

// join подписывает зрителя на рассылки и отправляет приветствие со снимком лучей.
// Пока выполняется join, рассылки не идут: первым после снимка зритель получит следующее событие.
func (s *Server) join(viewer *viewerConn) error {
	var err error
	s.beams.WithSnapshots(func(snapshots []game.BeamSnapshot) {
		s.viewersMu.Lock()
		s.viewers[viewer.id] = viewer
		s.viewersMu.Unlock()

		err = s.sendWelcome(viewer, snapshots)
	})
	return err
}

func (s *Server) removeViewer(viewer *viewerConn) {
	s.viewersMu.Lock()
	delete(s.viewers, viewer.id)
	s.viewersMu.Unlock()

	s.world.RemoveObject(viewer.id)
	_ = viewer.conn.Close()
}

func (s *Server) sendWelcome(viewer *viewerConn, snapshots []game.BeamSnapshot) error {
	if err := viewer.conn.WriteJSON(NewInfoMessage("rarays beam server")); err != nil {
		return err
	}
	if err := viewer.conn.WriteJSON(NewViewerMessage(viewer.id, viewer.Eye())); err != nil {
		return err
	}
	for _, snapshot := range snapshots {
		if err := viewer.conn.WriteJSON(NewBeamCreateMessage(snapshot)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleMessage(viewer *viewerConn, data []byte) error {
	msg, err := ParseMessage(data)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case *PingMessage:
		return viewer.conn.WriteJSON(NewPongMessage(m.ClientTime))
	case *MoveMessage:
		return s.moveViewer(viewer, m.Eye.toVec())
	case *FireMessage:
		return s.handleFire(viewer, m)
	default:
		return ErrUnknownMessage
	}
}

func (s *Server) moveViewer(viewer *viewerConn, eye mgl64.Vec3) error {
	viewer.setEye(eye)
	if err := s.world.UpdateObjectPosition(viewer.id, eye); err != nil {
		return fmt.Errorf("move viewer: %w", err)
	}
	return nil
}

func (s *Server) handleFire(viewer *viewerConn, msg *FireMessage) error {
	if msg.Eye != nil {
		if err := s.moveViewer(viewer, msg.Eye.toVec()); err != nil {
			return err
		}
	}

	_, ok, err := s.beams.Fire(beam.Viewer{
		ID:        viewer.id,
		Eye:       viewer.Eye(),
		Direction: msg.Dir.toVec(),
	})
	if err != nil {
		return err
	}
	if !ok {
		return viewer.conn.WriteJSON(NewMissMessage())
	}
	return nil
}

// ViewerCount число подключенных зрителей
func (s *Server) ViewerCount() int {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()
	return len(s.viewers)
}

// BroadcastBeamCreated рассылает новый луч всем зрителям
func (s *Server) BroadcastBeamCreated(snapshot game.BeamSnapshot) {
	s.broadcast(NewBeamCreateMessage(snapshot))
}

// BroadcastBeamScale рассылает новый масштаб луча
func (s *Server) BroadcastBeamScale(update game.BeamScaleUpdate) {
	s.broadcast(NewBeamScaleMessage(update))
}

// BroadcastBeamRemoved рассылает удаление луча
func (s *Server) BroadcastBeamRemoved(beamID string) {
	s.broadcast(NewBeamRemoveMessage(beamID))
}

func (s *Server) broadcast(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal broadcast")
		return
	}

	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()

	for id, viewer := range s.viewers {
		if err := viewer.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug().Err(err).Str("viewer", id).Msg("broadcast write failed")
		}
	}
}

// Close закрывает все соединения
func (s *Server) Close() error {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()

	var errs []error
	for _, viewer := range s.viewers {
		if err := viewer.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
