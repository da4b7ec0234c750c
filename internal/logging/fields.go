package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// TransformFields 提供请求路径、源文件名与缓存命中字段，供转换日志复用。
func TransformFields(path, sourceName string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":    "transform",
		"path":      path,
		"source":    sourceName,
		"cache_hit": cacheHit,
	}
}
