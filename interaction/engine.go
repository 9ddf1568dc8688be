package interaction

import (
	"math"
	"sync"
	"time"

	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/spatial"
)

const (
	// DefaultHandTimeoutTicks is how many ticks a hand may go
	// unobserved before it is reset and its locks released.
	DefaultHandTimeoutTicks = 3

	DefaultMinScale       = 0.5
	DefaultMaxScale       = 2.5
	DefaultScaleSmoothing = 0.15

	// DefaultScaleBaselineArea is the reference hand bounding box area
	// used for depth zoom when no area was observed at grab time.
	DefaultScaleBaselineArea = 15000

	// DefaultScaleGain is the scale fraction applied per unit of
	// vertical cursor travel in the scaling state.
	DefaultScaleGain = 0.005
)

const moduleStateKey = "interaction.engine"

// Config tunes an Engine. The zero value is usable, every field falls
// back to its default.
type Config struct {
	HandTimeoutTicks  int
	MinScale          float32
	MaxScale          float32
	ScaleSmoothing    float32
	ScaleBaselineArea float32
	ScaleGain         float32
	EventLogCapacity  int

	// CoalesceGestures folds the recognizer vocabulary onto
	// closed_fist/open_palm. See CoalesceGesture.
	CoalesceGestures bool

	// ScaleByDepth makes dragged objects scale with the hand's
	// apparent size.
	ScaleByDepth bool
}

func (c Config) withDefaults() Config {
	if c.HandTimeoutTicks <= 0 {
		c.HandTimeoutTicks = DefaultHandTimeoutTicks
	}
	if c.MinScale <= 0 {
		c.MinScale = DefaultMinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = DefaultMaxScale
	}
	if c.ScaleSmoothing <= 0 {
		c.ScaleSmoothing = DefaultScaleSmoothing
	}
	if c.ScaleBaselineArea <= 0 {
		c.ScaleBaselineArea = DefaultScaleBaselineArea
	}
	if c.ScaleGain <= 0 {
		c.ScaleGain = DefaultScaleGain
	}
	if c.EventLogCapacity <= 0 {
		c.EventLogCapacity = models.DefaultEventLogCapacity
	}
	return c
}

// FrameUpdate is the per-tick frame context.
type FrameUpdate struct {
	FrameNumber uint64
	Time        time.Time
}

// HandUpdate is one tracked hand observation for one tick.
type HandUpdate struct {
	Hand       models.HandLabel
	Gesture    models.Gesture
	Confidence float32
	Position   spatial.Vector2f
	Position3D spatial.Vector3f
	Has3D      bool
	BBoxArea   float32
}

type handRuntime struct {
	visible     bool
	missedTicks int

	state      models.InteractionState
	gesture    models.Gesture
	rawGesture models.Gesture
	confidence float32
	cursor     spatial.Vector2f
	cursor3D   spatial.Vector3f
	has3D      bool

	hoveredID  uint32
	selectedID uint32

	grabOffset    spatial.Vector2f
	areaBaseline  float32
	smoothedScale float32

	scaleStartY     float32
	scaleStartScale float32

	rotateStartAngle    float32
	rotateStartRotation float32
}

func (h *handRuntime) reset() {
	*h = handRuntime{
		state:      models.StateIdle,
		gesture:    models.GestureUnknown,
		rawGesture: models.GestureUnknown,
	}
}

// Engine owns a session's object store and both hand states and
// advances them one tick at a time. A tick holds exclusive mutation
// rights for its whole duration, readers only ever see the snapshot
// committed at the end of the previous tick.
type Engine struct {
	cfg    Config
	store  *models.ObjectStore
	events *models.EventLog

	mutex       sync.RWMutex
	hands       [models.NumHandLabels]handRuntime
	pending     []models.InteractionEvent
	tick        uint64
	frameNumber uint64
	latest      Snapshot

	sensorMutex sync.Mutex
	sensorID    uint32
	hasSensor   bool
}

func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:    cfg,
		store:  models.NewObjectStore(),
		events: models.NewEventLog(cfg.EventLogCapacity),
	}
	for i := range e.hands {
		e.hands[i].reset()
	}
	e.latest = e.buildSnapshot()
	return e
}

// SessionEngine returns the engine attached to the session, creating
// it on first use.
func SessionEngine(s *models.Session, cfg Config) *Engine {
	state := s.ModuleStateOrSet(moduleStateKey, func() any {
		return NewEngine(cfg)
	})
	engine, _ := state.(*Engine)
	return engine
}

// AttachedEngine returns the engine attached to the session, if any,
// without creating one.
func AttachedEngine(s *models.Session) (*Engine, bool) {
	state, ok := s.ModuleState(moduleStateKey)
	if !ok {
		return nil, false
	}
	engine, ok := state.(*Engine)
	return engine, ok
}

func (e *Engine) Store() *models.ObjectStore {
	return e.store
}

func (e *Engine) Events() *models.EventLog {
	return e.events
}

// Ticks returns how many ticks were applied so far.
func (e *Engine) Ticks() uint64 {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.tick
}

// SetSensor records which participant feeds frames into the engine.
func (e *Engine) SetSensor(participantID uint32) {
	e.sensorMutex.Lock()
	defer e.sensorMutex.Unlock()

	e.sensorID = participantID
	e.hasSensor = true
}

func (e *Engine) Sensor() (uint32, bool) {
	e.sensorMutex.Lock()
	defer e.sensorMutex.Unlock()

	return e.sensorID, e.hasSensor
}

// ClearSensor forgets the sensor participant if it matches. It reports
// whether the participant was the registered sensor.
func (e *Engine) ClearSensor(participantID uint32) bool {
	e.sensorMutex.Lock()
	defer e.sensorMutex.Unlock()

	if !e.hasSensor || e.sensorID != participantID {
		return false
	}
	e.sensorID = 0
	e.hasSensor = false
	return true
}

// Advance applies one tick: the frame context plus the hand
// observations of that frame. Hands are stepped in a fixed label order,
// left before right, so lock arbitration is reproducible for identical
// inputs. Frames older than the last applied one are dropped. It
// returns the committed snapshot and the events appended during the
// tick.
func (e *Engine) Advance(frame FrameUpdate, hands []HandUpdate) (Snapshot, []models.InteractionEvent) {
	start := time.Now()

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.frameNumber != 0 && frame.FrameNumber != 0 && frame.FrameNumber <= e.frameNumber {
		instrumentStaleFrame()
		return e.latest, nil
	}

	now := frame.Time
	if now.IsZero() {
		now = time.Now()
	}

	// Last observation wins when a label is reported twice.
	var updates [models.NumHandLabels]*HandUpdate
	for i := range hands {
		u := hands[i]
		if int(u.Hand) >= len(updates) {
			continue
		}
		updates[u.Hand] = &u
	}

	e.pending = nil

	for label := models.HandLeft; label < models.NumHandLabels; label++ {
		h := &e.hands[label]

		u := updates[label]
		if u == nil {
			if !h.visible {
				continue
			}
			h.missedTicks++
			if h.missedTicks > e.cfg.HandTimeoutTicks {
				e.timeoutHand(h, label, now)
			}
			continue
		}

		e.stepHand(h, label, *u, now)
	}

	e.tick++
	if frame.FrameNumber != 0 {
		e.frameNumber = frame.FrameNumber
	}

	events := e.pending
	e.appendEvents(events)
	e.latest = e.buildSnapshot()

	instrumentTick(start)
	return e.latest, events
}

// Commit revalidates hand references and republishes the snapshot
// after the store was mutated outside a tick, typically by a module
// adding or clearing demo objects.
func (e *Engine) Commit() (Snapshot, []models.InteractionEvent) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.pending = nil
	now := time.Now()

	for label := models.HandLeft; label < models.NumHandLabels; label++ {
		h := &e.hands[label]

		if h.selectedID != 0 {
			if _, ok := e.store.Get(h.selectedID); !ok {
				e.dropStale(h, label, now)
			}
		}
		if h.hoveredID != 0 {
			if _, ok := e.store.Get(h.hoveredID); !ok {
				e.emit(models.EventHoverEnd, label, h.hoveredID, now)
				h.hoveredID = 0
				if h.state == models.StateHover {
					h.state = models.StateIdle
				}
			}
		}
	}

	events := e.pending
	e.appendEvents(events)
	e.latest = e.buildSnapshot()
	return e.latest, events
}

// ResetHands force-resets both hands and releases every lock, used
// when the sensor feed drops.
func (e *Engine) ResetHands() (Snapshot, []models.InteractionEvent) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.pending = nil
	now := time.Now()

	for label := models.HandLeft; label < models.NumHandLabels; label++ {
		h := &e.hands[label]
		if !h.visible {
			continue
		}
		e.timeoutHand(h, label, now)
	}
	e.store.ReleaseLocksHeldBy(models.HandLeft)
	e.store.ReleaseLocksHeldBy(models.HandRight)

	events := e.pending
	e.appendEvents(events)
	e.latest = e.buildSnapshot()
	return e.latest, events
}

// LatestSnapshot returns the snapshot committed by the last tick.
func (e *Engine) LatestSnapshot() Snapshot {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.latest
}

func (e *Engine) stepHand(h *handRuntime, label models.HandLabel, u HandUpdate, now time.Time) {
	if !h.visible {
		h.reset()
		h.visible = true
	}
	h.missedTicks = 0

	raw := u.Gesture
	if raw == "" {
		raw = models.GestureUnknown
	}
	gesture := raw
	if e.cfg.CoalesceGestures {
		gesture = CoalesceGesture(raw, h.gesture)
	}

	h.rawGesture = raw
	h.gesture = gesture
	h.confidence = u.Confidence
	h.cursor = u.Position
	h.cursor3D = u.Position3D
	h.has3D = u.Has3D

	hit, hitOK := e.hitTest(h.cursor)

	switch h.state {
	case models.StateIdle:
		if hitOK && gesture != models.GestureClosedFist {
			h.state = models.StateHover
			h.hoveredID = hit
			e.emit(models.EventHoverStart, label, hit, now)
		}

	case models.StateHover:
		if !hitOK {
			e.emit(models.EventHoverEnd, label, h.hoveredID, now)
			h.hoveredID = 0
			h.state = models.StateIdle
			return
		}
		if hit != h.hoveredID {
			e.emit(models.EventHoverEnd, label, h.hoveredID, now)
			h.hoveredID = hit
			e.emit(models.EventHoverStart, label, hit, now)
		}

		switch gesture {
		case models.GestureClosedFist:
			e.acquire(h, label, h.hoveredID, models.StateDragging, u, now)
		case models.GesturePinch:
			e.acquire(h, label, h.hoveredID, models.StateScaling, u, now)
		case models.GesturePointing:
			e.acquire(h, label, h.hoveredID, models.StateRotating, u, now)
		}

	case models.StateDragging:
		if gesture == models.GestureClosedFist {
			e.dragTick(h, u, now, label)
		} else {
			e.releaseToSelected(h, label, models.EventDragEnd, now)
		}

	case models.StateScaling:
		if gesture == models.GesturePinch {
			e.scaleTick(h, label, now)
		} else {
			e.releaseToSelected(h, label, models.EventScaleEnd, now)
		}

	case models.StateRotating:
		if gesture == models.GesturePointing {
			e.rotateTick(h, label, now)
		} else {
			e.releaseToSelected(h, label, models.EventRotateEnd, now)
		}

	case models.StateSelected:
		// Hover bookkeeping continues while a selection is held.
		if !hitOK && h.hoveredID != 0 {
			e.emit(models.EventHoverEnd, label, h.hoveredID, now)
			h.hoveredID = 0
		} else if hitOK && hit != h.hoveredID {
			if h.hoveredID != 0 {
				e.emit(models.EventHoverEnd, label, h.hoveredID, now)
			}
			h.hoveredID = hit
			e.emit(models.EventHoverStart, label, hit, now)
		}

		switch gesture {
		case models.GestureClosedFist:
			if hitOK && hit == h.selectedID {
				e.acquire(h, label, h.selectedID, models.StateDragging, u, now)
			}
		case models.GesturePinch:
			if hitOK && hit == h.selectedID {
				e.acquire(h, label, h.selectedID, models.StateScaling, u, now)
			}
		case models.GesturePointing:
			if hitOK && hit == h.selectedID {
				e.acquire(h, label, h.selectedID, models.StateRotating, u, now)
			}
		case models.GestureOpenPalm:
			if !hitOK || hit != h.selectedID {
				id := h.selectedID
				h.selectedID = 0
				e.emit(models.EventDeselect, label, id, now)
				if hitOK {
					h.state = models.StateHover
				} else {
					h.state = models.StateIdle
				}
			}
		case models.GestureThumbsUp:
			e.emit(models.EventConfirm, label, h.selectedID, now)
		case models.GestureThumbsDown:
			id := h.selectedID
			e.store.ResetTransform(id)
			h.selectedID = 0
			if h.hoveredID != 0 {
				e.emit(models.EventHoverEnd, label, h.hoveredID, now)
				h.hoveredID = 0
			}
			h.state = models.StateIdle
			e.emit(models.EventCancel, label, id, now)
		}
	}
}

// acquire locks the object and moves the hand into a mutating state,
// capturing the baselines the state's mutator runs against. A denied
// lock leaves the hand where it is.
func (e *Engine) acquire(h *handRuntime, label models.HandLabel, id uint32, next models.InteractionState, u HandUpdate, now time.Time) {
	obj, ok := e.store.Get(id)
	if !ok {
		return
	}
	if !e.store.AcquireLock(id, label) {
		instrumentLockDenial()
		return
	}

	h.selectedID = id
	h.hoveredID = 0
	h.state = next

	switch next {
	case models.StateDragging:
		h.grabOffset = obj.Position().Sub(h.cursor)
		h.areaBaseline = u.BBoxArea
		if h.areaBaseline <= 0 {
			h.areaBaseline = e.cfg.ScaleBaselineArea
		}
		h.smoothedScale = obj.Transform().Scale
		e.emit(models.EventDragStart, label, id, now)

	case models.StateScaling:
		h.scaleStartY = h.cursor.Y
		h.scaleStartScale = obj.Transform().Scale
		e.emit(models.EventScaleStart, label, id, now)

	case models.StateRotating:
		h.rotateStartAngle = h.cursor.Sub(obj.Position()).Angle()
		h.rotateStartRotation = obj.Transform().RotationDegrees
		e.emit(models.EventRotateStart, label, id, now)
	}

	// Acquiring steals a soft selection held by the other hand.
	other := &e.hands[label.Other()]
	if other != h && other.selectedID == id {
		other.selectedID = 0
		if other.state == models.StateSelected {
			if other.hoveredID != 0 {
				other.state = models.StateHover
			} else {
				other.state = models.StateIdle
			}
		}
		e.emit(models.EventDeselect, label.Other(), id, now)
	}
}

// releaseToSelected drops the lock but keeps the selection, the object
// stays highlighted and re-grabbable.
func (e *Engine) releaseToSelected(h *handRuntime, label models.HandLabel, end models.EventType, now time.Time) {
	id := h.selectedID
	e.store.ReleaseLock(id, label)
	h.state = models.StateSelected
	e.emit(end, label, id, now)
}

// dropStale resolves a reference to a removed object back to idle.
func (e *Engine) dropStale(h *handRuntime, label models.HandLabel, now time.Time) {
	id := h.selectedID
	switch h.state {
	case models.StateDragging:
		e.emit(models.EventDragEnd, label, id, now)
	case models.StateScaling:
		e.emit(models.EventScaleEnd, label, id, now)
	case models.StateRotating:
		e.emit(models.EventRotateEnd, label, id, now)
	}
	e.emit(models.EventDeselect, label, id, now)

	h.selectedID = 0
	h.grabOffset = spatial.Vector2f{}
	h.state = models.StateIdle
}

func (e *Engine) dragTick(h *handRuntime, u HandUpdate, now time.Time, label models.HandLabel) {
	obj, ok := e.store.Get(h.selectedID)
	if !ok {
		e.dropStale(h, label, now)
		return
	}

	// The grabbed point stays under the cursor, whatever offsets
	// accumulated before.
	target := h.cursor.Add(h.grabOffset)
	e.store.ApplyOffset(h.selectedID, target.Sub(obj.Position()))

	if e.cfg.ScaleByDepth && u.BBoxArea > 0 && h.areaBaseline > 0 {
		ratio := u.BBoxArea / h.areaBaseline
		depthScale := clamp(float32(math.Sqrt(float64(ratio))), e.cfg.MinScale, e.cfg.MaxScale)
		h.smoothedScale += (depthScale - h.smoothedScale) * e.cfg.ScaleSmoothing

		if current := obj.Transform().Scale; current > 0 {
			e.store.ApplyScale(h.selectedID, h.smoothedScale/current)
		}
	}

	if obj.Is3D && h.has3D {
		e.store.SetPosition3D(h.selectedID, h.cursor3D)
	}
}

func (e *Engine) scaleTick(h *handRuntime, label models.HandLabel, now time.Time) {
	obj, ok := e.store.Get(h.selectedID)
	if !ok {
		e.dropStale(h, label, now)
		return
	}

	// Upward travel grows the object.
	travel := h.scaleStartY - h.cursor.Y
	target := clamp(h.scaleStartScale*(1+travel*e.cfg.ScaleGain), e.cfg.MinScale, e.cfg.MaxScale)

	if current := obj.Transform().Scale; current > 0 {
		e.store.ApplyScale(h.selectedID, target/current)
	}
}

func (e *Engine) rotateTick(h *handRuntime, label models.HandLabel, now time.Time) {
	obj, ok := e.store.Get(h.selectedID)
	if !ok {
		e.dropStale(h, label, now)
		return
	}

	// Absolute from the rotate_start baseline, so recognizer gaps do
	// not accumulate drift. Angle wraps jump by full turns, which is
	// invisible.
	angle := h.cursor.Sub(obj.Position()).Angle()
	target := h.rotateStartRotation + angle - h.rotateStartAngle
	e.store.ApplyRotation(h.selectedID, target-obj.Transform().RotationDegrees)
}

func (e *Engine) timeoutHand(h *handRuntime, label models.HandLabel, now time.Time) {
	instrumentHandTimeout()

	if h.selectedID != 0 {
		switch h.state {
		case models.StateDragging:
			e.store.ReleaseLock(h.selectedID, label)
			e.emit(models.EventDragEnd, label, h.selectedID, now)
		case models.StateScaling:
			e.store.ReleaseLock(h.selectedID, label)
			e.emit(models.EventScaleEnd, label, h.selectedID, now)
		case models.StateRotating:
			e.store.ReleaseLock(h.selectedID, label)
			e.emit(models.EventRotateEnd, label, h.selectedID, now)
		}
		e.emit(models.EventDeselect, label, h.selectedID, now)
	}
	if h.hoveredID != 0 {
		e.emit(models.EventHoverEnd, label, h.hoveredID, now)
	}
	e.emit(models.EventHandLost, label, 0, now)

	h.reset()
}

func (e *Engine) hitTest(cursor spatial.Vector2f) (uint32, bool) {
	objects := e.store.List()

	candidates := make([]spatial.Candidate, len(objects))
	for i, o := range objects {
		candidates[i] = spatial.Candidate{ID: o.ID, Region: o.Region()}
	}
	return spatial.HitTest(cursor, candidates)
}

func (e *Engine) emit(t models.EventType, hand models.HandLabel, objectID uint32, now time.Time) {
	e.pending = append(e.pending, models.InteractionEvent{
		Type:      t,
		Hand:      hand,
		ObjectID:  objectID,
		Timestamp: now,
	})
}

func (e *Engine) appendEvents(events []models.InteractionEvent) {
	for _, ev := range events {
		e.events.Append(ev)
		instrumentEvent(ev.Type)
	}
}

func (e *Engine) buildSnapshot() Snapshot {
	objects := e.store.List()

	snapshot := Snapshot{
		Tick:        e.tick,
		FrameNumber: e.frameNumber,
		Objects:     make([]ObjectSnapshot, len(objects)),
		Hands:       make([]HandSnapshot, models.NumHandLabels),
	}

	hoveredBy := make(map[uint32]string, models.NumHandLabels)
	selectedBy := make(map[uint32]string, models.NumHandLabels)

	for label := models.HandLeft; label < models.NumHandLabels; label++ {
		h := e.hands[label]
		if h.hoveredID != 0 {
			hoveredBy[h.hoveredID] = label.String()
		}
		if h.selectedID != 0 {
			selectedBy[h.selectedID] = label.String()
		}

		snapshot.Hands[label] = HandSnapshot{
			Hand:       label,
			Visible:    h.visible,
			State:      h.state,
			Gesture:    h.gesture,
			RawGesture: h.rawGesture,
			Confidence: h.confidence,
			Position:   h.cursor,
			Position3D: h.cursor3D,
			HoveredID:  h.hoveredID,
			SelectedID: h.selectedID,
		}
	}

	for i, o := range objects {
		transform := o.Transform()

		snapshot.Objects[i] = ObjectSnapshot{
			ID:              o.ID,
			Kind:            o.Kind,
			Color:           o.Color,
			Demo:            o.Demo,
			Is3D:            o.Is3D,
			Anchor:          o.Anchor,
			Position:        o.Position(),
			Position3D:      o.Position3DValue(),
			Offset:          transform.Offset,
			RotationDegrees: transform.RotationDegrees,
			Scale:           transform.Scale,
			HoveredBy:       hoveredBy[o.ID],
			SelectedBy:      selectedBy[o.ID],
		}
	}

	return snapshot
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
