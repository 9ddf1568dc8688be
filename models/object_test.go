package models

import (
	"testing"

	"github.com/aukilabs/tafl/spatial"
	"github.com/stretchr/testify/require"
)

func TestObjectStoreAdd(t *testing.T) {
	store := NewObjectStore()

	idA := store.Add(&InteractiveObject{
		Kind:   KindCircle,
		Anchor: spatial.Box{X: 100, Y: 100, W: 100, H: 100},
	})
	idB := store.Add(&InteractiveObject{
		Kind:   KindSquare,
		Anchor: spatial.Box{X: 300, Y: 100, W: 100, H: 100},
	})

	require.NotZero(t, idA)
	require.Greater(t, idB, idA)
	require.Equal(t, 2, store.Len())

	o, ok := store.Get(idA)
	require.True(t, ok)
	require.Equal(t, idA, o.ID)
	require.Equal(t, float32(1), o.Transform().Scale)
	require.False(t, o.CreatedAt.IsZero())
}

func TestObjectStoreIDsAreNotReused(t *testing.T) {
	store := NewObjectStore()

	idA := store.Add(&InteractiveObject{Kind: KindCircle})
	require.True(t, store.Remove(idA))

	idB := store.Add(&InteractiveObject{Kind: KindSquare})
	require.Greater(t, idB, idA)
}

func TestObjectStoreGet(t *testing.T) {
	store := NewObjectStore()

	t.Run("object is returned", func(t *testing.T) {
		id := store.Add(&InteractiveObject{Kind: KindStar})

		o, ok := store.Get(id)
		require.True(t, ok)
		require.Equal(t, KindStar, o.Kind)
	})

	t.Run("object is not returned", func(t *testing.T) {
		o, ok := store.Get(4242)
		require.False(t, ok)
		require.Nil(t, o)
	})
}

func TestObjectStoreList(t *testing.T) {
	store := NewObjectStore()

	var ids []uint32
	for _, kind := range []ObjectKind{KindCircle, KindSquare, KindTriangle} {
		ids = append(ids, store.Add(&InteractiveObject{Kind: kind}))
	}

	list := store.List()
	require.Len(t, list, 3)
	for i, o := range list {
		require.Equal(t, ids[i], o.ID)
	}
}

func TestObjectStoreRemove(t *testing.T) {
	t.Run("object is removed", func(t *testing.T) {
		store := NewObjectStore()

		id := store.Add(&InteractiveObject{Kind: KindCircle})
		require.True(t, store.Remove(id))
		require.Zero(t, store.Len())
	})

	t.Run("removing releases the lock", func(t *testing.T) {
		store := NewObjectStore()

		id := store.Add(&InteractiveObject{Kind: KindCircle})
		require.True(t, store.AcquireLock(id, HandLeft))

		require.True(t, store.Remove(id))

		_, locked := store.LockHolder(id)
		require.False(t, locked)
	})

	t.Run("unknown object is not removed", func(t *testing.T) {
		store := NewObjectStore()
		require.False(t, store.Remove(4242))
	})
}

func TestObjectStoreClear(t *testing.T) {
	store := NewObjectStore()

	store.Add(&InteractiveObject{Kind: KindCircle})
	id := store.Add(&InteractiveObject{Kind: KindSquare})
	require.True(t, store.AcquireLock(id, HandRight))

	require.Equal(t, 2, store.Clear())
	require.Zero(t, store.Len())

	_, locked := store.LockHolder(id)
	require.False(t, locked)
}

func TestObjectStoreApplyOffset(t *testing.T) {
	store := NewObjectStore()

	id := store.Add(&InteractiveObject{
		Kind:   KindCircle,
		Anchor: spatial.Box{X: 100, Y: 100, W: 100, H: 100},
	})

	require.True(t, store.ApplyOffset(id, spatial.NewVector2f(10, -5)))
	require.True(t, store.ApplyOffset(id, spatial.NewVector2f(5, 5)))

	o, _ := store.Get(id)
	require.True(t, o.Transform().Offset.EqualWithEpsilon(spatial.NewVector2f(15, 0), 0.001))
	require.True(t, o.Position().EqualWithEpsilon(spatial.NewVector2f(165, 150), 0.001))

	require.False(t, store.ApplyOffset(4242, spatial.NewVector2f(1, 1)))
}

func TestObjectStoreApplyRotation(t *testing.T) {
	store := NewObjectStore()

	id := store.Add(&InteractiveObject{Kind: KindSquare})

	require.True(t, store.ApplyRotation(id, 30))
	require.True(t, store.ApplyRotation(id, -10))

	o, _ := store.Get(id)
	require.InDelta(t, float32(20), o.Transform().RotationDegrees, 0.0001)

	require.False(t, store.ApplyRotation(4242, 30))
}

func TestObjectStoreApplyScale(t *testing.T) {
	store := NewObjectStore()

	id := store.Add(&InteractiveObject{Kind: KindSquare})

	require.True(t, store.ApplyScale(id, 2))
	require.True(t, store.ApplyScale(id, 0.5))

	o, _ := store.Get(id)
	require.InDelta(t, float32(1), o.Transform().Scale, 0.0001)

	t.Run("non positive factor is rejected", func(t *testing.T) {
		require.False(t, store.ApplyScale(id, 0))
		require.False(t, store.ApplyScale(id, -1))
	})

	t.Run("unknown object is rejected", func(t *testing.T) {
		require.False(t, store.ApplyScale(4242, 2))
	})
}

func TestObjectStoreResetTransform(t *testing.T) {
	store := NewObjectStore()

	id := store.Add(&InteractiveObject{
		Kind:   KindCircle,
		Anchor: spatial.Box{X: 100, Y: 100, W: 100, H: 100},
	})

	require.True(t, store.ApplyOffset(id, spatial.NewVector2f(40, 40)))
	require.True(t, store.ApplyRotation(id, 45))
	require.True(t, store.ApplyScale(id, 2))

	require.True(t, store.ResetTransform(id))

	o, _ := store.Get(id)
	transform := o.Transform()
	require.True(t, transform.Offset.EqualWithEpsilon(spatial.Vector2f{}, 0.001))
	require.Zero(t, transform.RotationDegrees)
	require.Equal(t, float32(1), transform.Scale)

	require.False(t, store.ResetTransform(4242))
}

func TestObjectStoreLocks(t *testing.T) {
	t.Run("lock is acquired on a free object", func(t *testing.T) {
		store := NewObjectStore()
		id := store.Add(&InteractiveObject{Kind: KindCircle})

		require.True(t, store.AcquireLock(id, HandLeft))

		holder, locked := store.LockHolder(id)
		require.True(t, locked)
		require.Equal(t, HandLeft, holder)
	})

	t.Run("lock is reentrant for the same hand", func(t *testing.T) {
		store := NewObjectStore()
		id := store.Add(&InteractiveObject{Kind: KindCircle})

		require.True(t, store.AcquireLock(id, HandLeft))
		require.True(t, store.AcquireLock(id, HandLeft))
	})

	t.Run("lock held by the other hand is refused", func(t *testing.T) {
		store := NewObjectStore()
		id := store.Add(&InteractiveObject{Kind: KindCircle})

		require.True(t, store.AcquireLock(id, HandLeft))
		require.False(t, store.AcquireLock(id, HandRight))
	})

	t.Run("lock on an unknown object is refused", func(t *testing.T) {
		store := NewObjectStore()
		require.False(t, store.AcquireLock(4242, HandLeft))
	})

	t.Run("release makes the lock acquirable again", func(t *testing.T) {
		store := NewObjectStore()
		id := store.Add(&InteractiveObject{Kind: KindCircle})

		require.True(t, store.AcquireLock(id, HandLeft))
		store.ReleaseLock(id, HandLeft)
		require.True(t, store.AcquireLock(id, HandRight))
	})

	t.Run("release by a non holder is ignored", func(t *testing.T) {
		store := NewObjectStore()
		id := store.Add(&InteractiveObject{Kind: KindCircle})

		require.True(t, store.AcquireLock(id, HandLeft))
		store.ReleaseLock(id, HandRight)

		holder, locked := store.LockHolder(id)
		require.True(t, locked)
		require.Equal(t, HandLeft, holder)
	})

	t.Run("release held by drops every lock of the hand", func(t *testing.T) {
		store := NewObjectStore()
		idA := store.Add(&InteractiveObject{Kind: KindCircle})
		idB := store.Add(&InteractiveObject{Kind: KindSquare})
		idC := store.Add(&InteractiveObject{Kind: KindStar})

		require.True(t, store.AcquireLock(idA, HandLeft))
		require.True(t, store.AcquireLock(idB, HandLeft))
		require.True(t, store.AcquireLock(idC, HandRight))

		store.ReleaseLocksHeldBy(HandLeft)

		_, lockedA := store.LockHolder(idA)
		require.False(t, lockedA)
		_, lockedB := store.LockHolder(idB)
		require.False(t, lockedB)

		holderC, lockedC := store.LockHolder(idC)
		require.True(t, lockedC)
		require.Equal(t, HandRight, holderC)
	})
}
