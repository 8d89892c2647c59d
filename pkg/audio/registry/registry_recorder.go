package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/xaionaro-go/voiceguard/pkg/audio/types"
)

type RecorderPCMFactory interface {
	NewRecorderPCM() (types.RecorderPCM, error)
}

type recorderFactoryWithPriority struct {
	Priority int
	RecorderPCMFactory
}

var (
	recorderFactoryRegistryLocker sync.Mutex
	recorderFactoryRegistry       = map[reflect.Type]recorderFactoryWithPriority{}
)

func RegisterRecorderFactory(
	priority int,
	recorderPCMFactory RecorderPCMFactory,
) {
	t := reflect.ValueOf(recorderPCMFactory).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	recorderFactoryRegistryLocker.Lock()
	defer recorderFactoryRegistryLocker.Unlock()
	if _, ok := recorderFactoryRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of RecorderPCM of type %v", t))
	}
	recorderFactoryRegistry[t] = recorderFactoryWithPriority{
		Priority:           priority,
		RecorderPCMFactory: recorderPCMFactory,
	}
}

// RecorderFactories returns the registered factories, the highest priority first.
func RecorderFactories() []RecorderPCMFactory {
	recorderFactoryRegistryLocker.Lock()
	var factoriesWithPriorities []recorderFactoryWithPriority
	for _, factory := range recorderFactoryRegistry {
		factoriesWithPriorities = append(factoriesWithPriorities, factory)
	}
	recorderFactoryRegistryLocker.Unlock()

	sort.SliceStable(factoriesWithPriorities, func(i, j int) bool {
		return factoriesWithPriorities[i].Priority > factoriesWithPriorities[j].Priority
	})

	factories := make([]RecorderPCMFactory, 0, len(factoriesWithPriorities))
	for _, factory := range factoriesWithPriorities {
		factories = append(factories, factory.RecorderPCMFactory)
	}
	return factories
}
