package vulkan

/*
#include <stdlib.h>

typedef void (*reactorVoidFunction)(void);
typedef reactorVoidFunction (*reactorGetProcAddr)(void* handle, const char* name);
typedef void (*reactorCmdBeginRenderingFn)(void* cmd, const void* info);
typedef void (*reactorCmdEndRenderingFn)(void* cmd);

static void* reactorDeviceProcAddr(void* getInstanceProcAddr, void* instance, void* device, const char* name) {
	reactorGetProcAddr getDeviceProcAddr =
		(reactorGetProcAddr)((reactorGetProcAddr)getInstanceProcAddr)(instance, "vkGetDeviceProcAddr");
	if (getDeviceProcAddr == NULL) {
		return NULL;
	}
	return (void*)getDeviceProcAddr(device, name);
}

static void reactorCmdBeginRendering(void* fn, void* cmd, const void* info) {
	((reactorCmdBeginRenderingFn)fn)(cmd, info);
}

static void reactorCmdEndRendering(void* fn, void* cmd) {
	((reactorCmdEndRenderingFn)fn)(cmd);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// dynamicRendering holds the Vulkan 1.3 rendering commands. The binding
// carries the structures but not the entry points, so they are resolved
// through vkGetDeviceProcAddr once the logical device exists.
type dynamicRendering struct {
	begin unsafe.Pointer
	end   unsafe.Pointer
}

func loadDynamicRendering(procAddr unsafe.Pointer, instance vk.Instance, device vk.Device) (dynamicRendering, error) {
	if procAddr == nil {
		return dynamicRendering{}, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	lookup := func(name string) (unsafe.Pointer, error) {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		fn := C.reactorDeviceProcAddr(procAddr, unsafe.Pointer(instance), unsafe.Pointer(device), cname)
		if fn == nil {
			return nil, fmt.Errorf("vulkan: device does not expose %s", name)
		}
		return fn, nil
	}

	begin, err := lookup("vkCmdBeginRendering")
	if err != nil {
		return dynamicRendering{}, err
	}
	end, err := lookup("vkCmdEndRendering")
	if err != nil {
		return dynamicRendering{}, err
	}
	return dynamicRendering{begin: begin, end: end}, nil
}

func (r dynamicRendering) cmdBegin(cmd vk.CommandBuffer, info *vk.RenderingInfo) {
	ref, _ := info.PassRef()
	defer info.Free()
	C.reactorCmdBeginRendering(r.begin, unsafe.Pointer(cmd), unsafe.Pointer(ref))
}

func (r dynamicRendering) cmdEnd(cmd vk.CommandBuffer) {
	C.reactorCmdEndRendering(r.end, unsafe.Pointer(cmd))
}
