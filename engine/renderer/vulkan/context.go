package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

var ErrValidationLayerMissing = errors.New("vulkan: validation layer not available")

type InstanceConfig struct {
	ApplicationName string
	// Extensions required by the window system.
	Extensions []string
	Validation bool
}

// VulkanContext owns the instance, the optional debug report callback and
// the presentation surface.
type VulkanContext struct {
	Instance vk.Instance
	Surface  vk.Surface

	debugMessenger vk.DebugReportCallback
	procAddr       unsafe.Pointer
	logger         core.Logger
}

// instanceExtensions returns the extensions the instance is created with.
func instanceExtensions(window []string, validation bool, goos string) []string {
	exts := []string{vk.KhrSurfaceExtensionName}
	for _, e := range window {
		if e != vk.KhrSurfaceExtensionName {
			exts = append(exts, e)
		}
	}
	if goos == "darwin" {
		exts = append(exts,
			vk.KhrPortabilityEnumerationExtensionName,
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		exts = append(exts, vk.ExtDebugReportExtensionName)
	}
	return exts
}

// hasLayer reports whether name is among the enumerated layers.
func hasLayer(layers []vk.LayerProperties, name string) bool {
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		if string(layers[i].LayerName[:end]) == name {
			return true
		}
	}
	return false
}

// NewVulkanContext loads the Vulkan loader through procAddr and creates the
// instance. The surface is attached separately with CreateSurface.
func NewVulkanContext(logger core.Logger, procAddr unsafe.Pointer, cfg InstanceConfig) (*VulkanContext, error) {
	if procAddr == nil {
		return nil, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		logger.Errorf("failed to initialize vk: %s", err)
		return nil, err
	}

	vc := &VulkanContext{logger: logger, procAddr: procAddr}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		PEngineName:        VulkanSafeString("Reactor Engine"),
		EngineVersion:      uint32(vk.MakeVersion(0, 1, 0)),
	}

	extensions := instanceExtensions(cfg.Extensions, cfg.Validation, runtime.GOOS)
	for _, e := range extensions {
		logger.Debugf("Required extension: %s", e)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags = vk.InstanceCreateFlags(vk.InstanceCreateEnumeratePortabilityBit)
	}

	if cfg.Validation {
		logger.Infof("Validation layers enabled. Enumerating...")
		var count uint32
		if err := check("enumerate instance layers", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
			return nil, err
		}
		layers := make([]vk.LayerProperties, count)
		if err := check("enumerate instance layers", vk.EnumerateInstanceLayerProperties(&count, layers)); err != nil {
			return nil, err
		}
		if !hasLayer(layers, validationLayerName) {
			logger.Errorf("Required validation layer is missing: %s", validationLayerName)
			return nil, fmt.Errorf("%w: %s", ErrValidationLayerMissing, validationLayerName)
		}
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = VulkanSafeStrings([]string{validationLayerName})
	}

	if err := check("create instance", vk.CreateInstance(&createInfo, nil, &vc.Instance)); err != nil {
		logger.Errorf("failed in creating the Vulkan Instance: %s", err)
		return nil, err
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		vk.DestroyInstance(vc.Instance, nil)
		return nil, err
	}
	logger.Infof("Vulkan Instance created.")

	if cfg.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: vc.debugCallback,
		}
		var dbg vk.DebugReportCallback
		if err := check("create debug report callback", vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			vc.Destroy()
			return nil, err
		}
		vc.debugMessenger = dbg
		logger.Debugf("Vulkan debugger created.")
	}
	return vc, nil
}

// CreateSurface asks the window for a surface on this instance.
func (vc *VulkanContext) CreateSurface(window Window) error {
	surface, err := window.CreateSurface(vc.Instance)
	if err != nil {
		return fmt.Errorf("vulkan surface creation failed: %w", err)
	}
	vc.Surface = surface
	return nil
}

func (vc *VulkanContext) debugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		vc.logger.Errorf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		vc.logger.Warnf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		vc.logger.Warnf("PERFORMANCE [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		vc.logger.Debugf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

// Destroy releases the surface, the debugger and the instance, in that order.
func (vc *VulkanContext) Destroy() {
	if vc.Surface != vk.NullSurface {
		vc.logger.Debugf("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, nil)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		vc.logger.Debugf("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, nil)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		vc.logger.Debugf("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, nil)
		vc.Instance = nil
	}
}
