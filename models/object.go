package models

import (
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/tafl/spatial"
)

// ObjectKind tells what a tabletop object renders as.
type ObjectKind string

const (
	KindCircle   ObjectKind = "circle"
	KindSquare   ObjectKind = "square"
	KindTriangle ObjectKind = "triangle"
	KindStar     ObjectKind = "star"
	KindDiamond  ObjectKind = "diamond"
	KindHexagon  ObjectKind = "hexagon"

	KindSphere ObjectKind = "sphere"
	KindCube   ObjectKind = "cube"
	KindCone   ObjectKind = "cone"
	KindTorus  ObjectKind = "torus"
)

// Transform is a copy of an object's current transform.
type Transform struct {
	Offset          spatial.Vector2f
	RotationDegrees float32
	Scale           float32
}

// InteractiveObject is a virtual object anchored on the table surface.
// The anchor box never changes once created, hands move the object
// around by mutating its transform.
type InteractiveObject struct {
	ID         uint32
	Kind       ObjectKind
	Color      string
	Demo       bool
	Anchor     spatial.Box
	Is3D       bool
	Position3D spatial.Vector3f
	CreatedAt  time.Time

	mutex    sync.RWMutex
	offset   spatial.Vector2f
	rotation float32
	scale    float32
}

func (o *InteractiveObject) Transform() Transform {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return Transform{
		Offset:          o.offset,
		RotationDegrees: o.rotation,
		Scale:           o.scale,
	}
}

// Position returns the transform-adjusted center of the object on the
// table plane.
func (o *InteractiveObject) Position() spatial.Vector2f {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.Anchor.Center().Add(o.offset)
}

// Region returns the transform-adjusted hit region of the object.
func (o *InteractiveObject) Region() spatial.Region {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return spatial.NewRegion(o.Anchor, o.offset, o.rotation, o.scale)
}

// Position3DValue returns the current sensor-space position of a
// volumetric object.
func (o *InteractiveObject) Position3DValue() spatial.Vector3f {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.Position3D
}

func (o *InteractiveObject) setPosition3D(p spatial.Vector3f) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.Position3D = p
}

func (o *InteractiveObject) applyOffset(delta spatial.Vector2f) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.offset = o.offset.Add(delta)
}

func (o *InteractiveObject) applyRotation(deltaDegrees float32) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.rotation += deltaDegrees
}

func (o *InteractiveObject) applyScale(factor float32) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.scale *= factor
}

func (o *InteractiveObject) resetTransform() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.offset = spatial.Vector2f{}
	o.rotation = 0
	o.scale = 1
}

// ObjectStore owns the interactive objects of a session and arbitrates
// exclusive hand locks over them. Object ids are never reused so
// creation order follows id order, which hit testing relies on.
type ObjectStore struct {
	ids SequentialIDGenerator

	mutex   sync.RWMutex
	objects map[uint32]*InteractiveObject

	lockMutex sync.Mutex
	locks     map[uint32]HandLabel
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[uint32]*InteractiveObject),
		locks:   make(map[uint32]HandLabel),
	}
}

// Add registers the object, assigning its id and defaulting its scale.
func (s *ObjectStore) Add(o *InteractiveObject) uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	o.ID = s.ids.New()
	o.scale = 1
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.objects[o.ID] = o

	instrumentObjectGauge(1)
	return o.ID
}

func (s *ObjectStore) Get(id uint32) (*InteractiveObject, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, ok := s.objects[id]
	return o, ok
}

// List returns the objects ordered by id.
func (s *ObjectStore) List() []*InteractiveObject {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	objects := make([]*InteractiveObject, 0, len(s.objects))
	for _, o := range s.objects {
		objects = append(objects, o)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ID < objects[j].ID
	})
	return objects
}

func (s *ObjectStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.objects)
}

// Remove deletes the object and releases any lock held on it. Removing
// a missing id is a no-op.
func (s *ObjectStore) Remove(id uint32) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.objects[id]; !ok {
		return false
	}
	delete(s.objects, id)

	s.lockMutex.Lock()
	delete(s.locks, id)
	s.lockMutex.Unlock()

	instrumentObjectGauge(-1)
	return true
}

// Clear removes every object and releases every lock, returning the
// number of objects removed.
func (s *ObjectStore) Clear() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := len(s.objects)
	s.objects = make(map[uint32]*InteractiveObject)

	s.lockMutex.Lock()
	s.locks = make(map[uint32]HandLabel)
	s.lockMutex.Unlock()

	instrumentObjectGauge(-removed)
	return removed
}

// ApplyOffset translates the object by delta. Mutating a missing id is
// a graceful no-op reported by the return value.
func (s *ObjectStore) ApplyOffset(id uint32, delta spatial.Vector2f) bool {
	o, ok := s.Get(id)
	if !ok {
		instrumentStaleReference()
		return false
	}
	o.applyOffset(delta)
	return true
}

// ApplyRotation rotates the object by deltaDegrees.
func (s *ObjectStore) ApplyRotation(id uint32, deltaDegrees float32) bool {
	o, ok := s.Get(id)
	if !ok {
		instrumentStaleReference()
		return false
	}
	o.applyRotation(deltaDegrees)
	return true
}

// ApplyScale multiplies the object scale by factor. Factors that would
// break the positive scale invariant are rejected.
func (s *ObjectStore) ApplyScale(id uint32, factor float32) bool {
	if factor <= 0 {
		return false
	}

	o, ok := s.Get(id)
	if !ok {
		instrumentStaleReference()
		return false
	}
	o.applyScale(factor)
	return true
}

// ResetTransform restores the object to its anchor: zero offset, zero
// rotation, scale one.
func (s *ObjectStore) ResetTransform(id uint32) bool {
	o, ok := s.Get(id)
	if !ok {
		instrumentStaleReference()
		return false
	}
	o.resetTransform()
	return true
}

// SetPosition3D moves a volumetric object in sensor space. Dragged
// volumetric objects follow the hand's 3D position.
func (s *ObjectStore) SetPosition3D(id uint32, p spatial.Vector3f) bool {
	o, ok := s.Get(id)
	if !ok {
		instrumentStaleReference()
		return false
	}
	o.setPosition3D(p)
	return true
}

// AcquireLock grants hand exclusive mutation rights over the object.
// It succeeds when the object exists and is unlocked or already locked
// by the same hand.
func (s *ObjectStore) AcquireLock(id uint32, hand HandLabel) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}

	s.lockMutex.Lock()
	defer s.lockMutex.Unlock()

	holder, locked := s.locks[id]
	if locked && holder != hand {
		return false
	}
	if !locked {
		s.locks[id] = hand
		instrumentLockGauge(1)
	}
	return true
}

// ReleaseLock releases the object lock if hand holds it.
func (s *ObjectStore) ReleaseLock(id uint32, hand HandLabel) {
	s.lockMutex.Lock()
	defer s.lockMutex.Unlock()

	if holder, ok := s.locks[id]; ok && holder == hand {
		delete(s.locks, id)
		instrumentLockGauge(-1)
	}
}

// ReleaseLocksHeldBy releases every lock held by hand.
func (s *ObjectStore) ReleaseLocksHeldBy(hand HandLabel) {
	s.lockMutex.Lock()
	defer s.lockMutex.Unlock()

	for id, holder := range s.locks {
		if holder == hand {
			delete(s.locks, id)
			instrumentLockGauge(-1)
		}
	}
}

// LockHolder returns which hand holds the object lock, if any.
func (s *ObjectStore) LockHolder(id uint32) (HandLabel, bool) {
	s.lockMutex.Lock()
	defer s.lockMutex.Unlock()

	holder, ok := s.locks[id]
	return holder, ok
}
