package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reactor/engine/core"
)

var ErrNoSuitableDevice = errors.New("vulkan: no physical device meets the requirements")

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
}

func defaultDeviceRequirements(goos string) VulkanPhysicalDeviceRequirements {
	return VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		DiscreteGPU:          goos != "darwin",
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32

	hasGraphics bool
	hasPresent  bool
}

// Shared reports whether a single queue serves graphics and presentation.
func (q VulkanPhysicalDeviceQueueFamilyInfo) Shared() bool {
	return q.GraphicsFamilyIndex == q.PresentFamilyIndex
}

// selectQueueFamilies prefers one family that can both draw and present.
// Otherwise it takes the first graphics family and the first present family.
func selectQueueFamilies(families []vk.QueueFamilyProperties, supportsPresent func(index uint32) bool) VulkanPhysicalDeviceQueueFamilyInfo {
	var info VulkanPhysicalDeviceQueueFamilyInfo
	for i := range families {
		index := uint32(i)
		families[i].Deref()
		graphics := vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0
		present := supportsPresent(index)

		if graphics && present {
			return VulkanPhysicalDeviceQueueFamilyInfo{
				GraphicsFamilyIndex: index,
				PresentFamilyIndex:  index,
				hasGraphics:         true,
				hasPresent:          true,
			}
		}
		if graphics && !info.hasGraphics {
			info.GraphicsFamilyIndex = index
			info.hasGraphics = true
		}
		if present && !info.hasPresent {
			info.PresentFamilyIndex = index
			info.hasPresent = true
		}
	}
	return info
}

// missingExtensions lists the entries of required not present in available.
func missingExtensions(available []vk.ExtensionProperties, required []string) []string {
	names := make(map[string]struct{}, len(available))
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].ExtensionName[:])
		names[string(available[i].ExtensionName[:end])] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := names[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

func enumerateDeviceExtensions(device vk.PhysicalDevice) ([]vk.ExtensionProperties, error) {
	var count uint32
	if err := check("enumerate device extensions", vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, err
	}
	exts := make([]vk.ExtensionProperties, count)
	if count == 0 {
		return exts, nil
	}
	if err := check("enumerate device extensions", vk.EnumerateDeviceExtensionProperties(device, "", &count, exts)); err != nil {
		return nil, err
	}
	return exts, nil
}

type physicalDeviceCandidate struct {
	handle     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	queues     VulkanPhysicalDeviceQueueFamilyInfo
	extensions []vk.ExtensionProperties
}

func physicalDeviceMeetsRequirements(logger core.Logger, device vk.PhysicalDevice, surface vk.Surface, requirements *VulkanPhysicalDeviceRequirements) (*physicalDeviceCandidate, bool) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	name := vk.ToString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		logger.Infof("Device %q is not a discrete GPU, and one is required. Skipping.", name)
		return nil, false
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	queues := selectQueueFamilies(families, func(index uint32) bool {
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, index, surface, &supported); res != vk.Success {
			return false
		}
		return supported == vk.True
	})
	logger.Debugf("Graphics: %t (%d) | Present: %t (%d) | %s",
		queues.hasGraphics, queues.GraphicsFamilyIndex, queues.hasPresent, queues.PresentFamilyIndex, name)
	if (requirements.Graphics && !queues.hasGraphics) || (requirements.Present && !queues.hasPresent) {
		logger.Infof("Device %q does not meet queue requirements, skipping.", name)
		return nil, false
	}

	extensions, err := enumerateDeviceExtensions(device)
	if err != nil {
		return nil, false
	}
	if missing := missingExtensions(extensions, requirements.DeviceExtensionNames); len(missing) > 0 {
		logger.Infof("Required extensions not found on %q: %v, skipping device.", name, missing)
		return nil, false
	}
	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		logger.Infof("Device %q does not support samplerAnisotropy, skipping.", name)
		return nil, false
	}
	return &physicalDeviceCandidate{
		handle:     device,
		properties: properties,
		queues:     queues,
		extensions: extensions,
	}, true
}

func selectPhysicalDevice(logger core.Logger, instance vk.Instance, surface vk.Surface) (*physicalDeviceCandidate, error) {
	var count uint32
	if err := check("enumerate physical devices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no devices which support Vulkan were found", ErrNoSuitableDevice)
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("enumerate physical devices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}

	requirements := defaultDeviceRequirements(runtime.GOOS)
	for attempt := 0; attempt < 2; attempt++ {
		for _, d := range devices {
			if candidate, ok := physicalDeviceMeetsRequirements(logger, d, surface, &requirements); ok {
				return candidate, nil
			}
		}
		// No discrete GPU: settle for whatever can draw and present.
		if !requirements.DiscreteGPU {
			break
		}
		requirements.DiscreteGPU = false
	}
	return nil, ErrNoSuitableDevice
}

func logPhysicalDevice(logger core.Logger, c *physicalDeviceCandidate) {
	p := c.properties
	logger.Infof("Selected device: '%s'.", vk.ToString(p.DeviceName[:]))
	logger.Infof("GPU type is %s.", deviceTypeName(p.DeviceType))
	logger.Infof("GPU Driver version: %d.%d.%d",
		vk.Version(p.DriverVersion).Major(),
		vk.Version(p.DriverVersion).Minor(),
		vk.Version(p.DriverVersion).Patch())
	logger.Infof("Vulkan API version: %d.%d.%d",
		vk.Version(p.ApiVersion).Major(),
		vk.Version(p.ApiVersion).Minor(),
		vk.Version(p.ApiVersion).Patch())

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.handle, &memory)
	memory.Deref()
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		gib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			logger.Infof("Local GPU memory: %.2f GiB", gib)
		} else {
			logger.Infof("Shared System memory: %.2f GiB", gib)
		}
	}
}

// VulkanDevice is the selected GPU with its logical device and queues.
type VulkanDevice struct {
	*vkDevice

	Queues        VulkanPhysicalDeviceQueueFamilyInfo
	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	Properties    vk.PhysicalDeviceProperties
}

// NewVulkanDevice picks a physical device able to present to surface and
// creates a logical device with dynamic rendering enabled.
func NewVulkanDevice(logger core.Logger, instance vk.Instance, surface vk.Surface, procAddr unsafe.Pointer) (*VulkanDevice, error) {
	candidate, err := selectPhysicalDevice(logger, instance, surface)
	if err != nil {
		logger.Errorf("No physical devices were found which meet the requirements.")
		return nil, err
	}
	logPhysicalDevice(logger, candidate)

	logger.Infof("Creating logical device...")

	families := []uint32{candidate.queues.GraphicsFamilyIndex}
	if !candidate.queues.Shared() {
		families = append(families, candidate.queues.PresentFamilyIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	if len(missingExtensions(candidate.extensions, []string{portabilitySubsetExtensionName})) == 0 {
		logger.Infof("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensions = append(extensions, portabilitySubsetExtensionName)
	}

	dynamicRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	cDynamicRendering, _ := dynamicRendering.PassRef()
	defer dynamicRendering.Free()
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(cDynamicRendering),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{SamplerAnisotropy: vk.True}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var logical vk.Device
	if err := check("create device", vk.CreateDevice(candidate.handle, &deviceCreateInfo, nil, &logical)); err != nil {
		logger.Errorf("failed to create logical device: %s", err)
		return nil, err
	}
	logger.Infof("Logical device created.")

	rendering, err := loadDynamicRendering(procAddr, instance, logical)
	if err != nil {
		vk.DestroyDevice(logical, nil)
		return nil, err
	}

	d := &VulkanDevice{
		vkDevice:   newVkDevice(candidate.handle, logical, surface, rendering),
		Queues:     candidate.queues,
		Properties: candidate.properties,
	}
	vk.GetDeviceQueue(logical, candidate.queues.GraphicsFamilyIndex, 0, &d.GraphicsQueue)
	vk.GetDeviceQueue(logical, candidate.queues.PresentFamilyIndex, 0, &d.PresentQueue)
	logger.Infof("Queues obtained.")
	return d, nil
}

// Destroy releases the logical device. Physical devices are not destroyed.
func (d *VulkanDevice) Destroy() {
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	if d.logical != nil {
		vk.DestroyDevice(d.logical, nil)
		d.logical = nil
	}
	d.physical = nil
}
